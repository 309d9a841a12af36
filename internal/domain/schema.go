package domain

// Requirement is the set of columns a named analysis step needs.
type Requirement struct {
	Step    string
	Columns []string
}

// Capability is the outcome of checking a Requirement against a Dataset.
type Capability struct {
	Required []string
	Present  []string
	Missing  []string
}

// Satisfied reports whether every required column is present.
func (c Capability) Satisfied() bool {
	return len(c.Missing) == 0
}

// Err returns a *MissingColumnError naming the absent columns, or nil.
func (c Capability) Err() error {
	if c.Satisfied() {
		return nil
	}
	return &MissingColumnError{Columns: c.Missing}
}

// CheckColumns splits the required columns into those the dataset has and
// those it lacks, preserving the order they were requested in.
func CheckColumns(ds Dataset, required ...string) Capability {
	capability := Capability{Required: required}
	for _, col := range required {
		if ds.HasColumn(col) {
			capability.Present = append(capability.Present, col)
		} else {
			capability.Missing = append(capability.Missing, col)
		}
	}
	return capability
}

// requireColumns returns a *MissingColumnError if any column is absent.
func requireColumns(ds Dataset, required ...string) error {
	return CheckColumns(ds, required...).Err()
}
