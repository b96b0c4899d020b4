package heap

// RowID identifies a row inside its table. Row ids are unique per table,
// never reused while the row is live, and define storage order.
type RowID int64
