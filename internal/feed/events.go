package feed

import "time"

const (
	RecipeCreated       = "recipe.created"
	RecipeUpdated       = "recipe.updated"
	RecipeDeleted       = "recipe.deleted"
	FavoriteAdded       = "favorite.added"
	FavoriteRemoved     = "favorite.removed"
	CartAdded           = "cart.added"
	CartRemoved         = "cart.removed"
	SubscriptionAdded   = "subscription.added"
	SubscriptionRemoved = "subscription.removed"
)

type Event struct {
	Type     string    `json:"type"`
	UserID   string    `json:"user_id"`
	RecipeID int64     `json:"recipe_id,omitempty"`
	AuthorID string    `json:"author_id,omitempty"`
	Name     string    `json:"name,omitempty"`
	At       time.Time `json:"at"`
}

// Publisher receives domain events from the HTTP handlers.
type Publisher interface {
	Publish(Event)
}

// Publish is a nil-safe helper for handlers that may run without a feed.
func Publish(p Publisher, e Event) {
	if p == nil {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	p.Publish(e)
}
