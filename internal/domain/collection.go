package domain

type Collection string

const (
	CollectionTasks      Collection = "tasks"
	CollectionOrders     Collection = "orders"
	CollectionDeliveries Collection = "deliveries"
	CollectionNotes      Collection = "notes"
	CollectionProcedures Collection = "procedures"
	CollectionScripts    Collection = "scripts"
)

const (
	FieldID        = "id"
	FieldBranch    = "branch"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
)

// Collections lists every persisted collection in backup order.
var Collections = []Collection{
	CollectionTasks,
	CollectionNotes,
	CollectionOrders,
	CollectionDeliveries,
	CollectionProcedures,
	CollectionScripts,
}

// BranchScoped reports whether records of c carry a branch tag and are
// filtered to the active branch before rendering.
func (c Collection) BranchScoped() bool {
	switch c {
	case CollectionTasks, CollectionOrders, CollectionDeliveries, CollectionNotes:
		return true
	}
	return false
}

func (c Collection) Valid() bool {
	for _, known := range Collections {
		if c == known {
			return true
		}
	}
	return false
}

func ParseCollection(name string) (Collection, bool) {
	c := Collection(name)
	return c, c.Valid()
}
