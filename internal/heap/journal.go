package heap

// Journal records undo steps for the changes of one statement so the
// statement can be rolled back as a unit.
type Journal struct {
	undo []func()
}

func NewJournal() *Journal { return &Journal{} }

// Record registers fn to be run if the journal is rolled back.
func (j *Journal) Record(fn func()) {
	if j == nil {
		return
	}
	j.undo = append(j.undo, fn)
}

// Rollback undoes every recorded change, newest first.
func (j *Journal) Rollback() {
	if j == nil {
		return
	}
	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i]()
	}
	j.undo = nil
}

// Commit forgets the recorded changes.
func (j *Journal) Commit() {
	if j == nil {
		return
	}
	j.undo = nil
}

func (j *Journal) Len() int {
	if j == nil {
		return 0
	}
	return len(j.undo)
}
