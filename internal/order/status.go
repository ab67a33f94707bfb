package order

type Status string

const (
	StatusPlaced     Status = "placed"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

var validNext = map[Status]map[Status]bool{
	StatusPlaced:     {StatusInProgress: true, StatusCancelled: true},
	StatusInProgress: {StatusCompleted: true, StatusCancelled: true},
	StatusCompleted:  {},
	StatusCancelled:  {},
}

// CanTransition reports whether a downstream consumer may move an order
// from one status to another. This core only ever writes StatusPlaced.
func CanTransition(from, to Status) bool {
	return validNext[from][to]
}
