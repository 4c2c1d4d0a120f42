package models

// User is the public profile returned by the users endpoints.
type User struct {
	ID           string  `json:"id"`
	Email        string  `json:"email"`
	Username     string  `json:"username"`
	FirstName    string  `json:"first_name"`
	LastName     string  `json:"last_name"`
	IsSubscribed bool    `json:"is_subscribed"`
	Avatar       *string `json:"avatar"`
}

// Subscription is an author card: the profile plus a preview of their recipes.
type Subscription struct {
	User
	Recipes      []RecipeShort `json:"recipes"`
	RecipesCount int           `json:"recipes_count"`
}
