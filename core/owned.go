package core

// Owned is implemented by every entity that belongs to an owner account.
type Owned interface {
	OwnedBy(ownerID string) bool
}

// CheckOwner returns notFound unless obj belongs to ownerID.
// Foreign objects are reported exactly like missing ones.
func CheckOwner(obj Owned, ownerID string, notFound error) error {
	if ownerID == "" || !obj.OwnedBy(ownerID) {
		return notFound
	}
	return nil
}
