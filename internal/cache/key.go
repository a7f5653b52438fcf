package cache

import (
	"fmt"
	"strconv"
)

// Category groups keys that share a freshness policy.
type Category string

const (
	CategoryRandom Category = "random"
	CategoryByID   Category = "byId"
)

// Key identifies a cache slot. Random keys with a Nonce are prefetch slots,
// distinct from the canonical random slot and from each other.
type Key struct {
	Category Category
	ID       int
	Nonce    string
}

// RandomKey is the canonical random slot.
func RandomKey() Key {
	return Key{Category: CategoryRandom}
}

// ByIDKey is the slot for one advice id.
func ByIDKey(id int) Key {
	return Key{Category: CategoryByID, ID: id}
}

// PrefetchKey is a random prefetch slot.
func PrefetchKey(nonce string) Key {
	return Key{Category: CategoryRandom, Nonce: nonce}
}

// IsPrefetch reports whether k is a prefetch slot.
func (k Key) IsPrefetch() bool {
	return k.Category == CategoryRandom && k.Nonce != ""
}

func (k Key) String() string {
	switch {
	case k.Category == CategoryByID:
		return "advice/byId/" + strconv.Itoa(k.ID)
	case k.IsPrefetch():
		return "advice/prefetch/" + k.Nonce
	case k.Category == CategoryRandom:
		return "advice/random"
	default:
		return fmt.Sprintf("advice/%s/%d/%s", k.Category, k.ID, k.Nonce)
	}
}
