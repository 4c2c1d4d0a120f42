package grpcserver

import (
	"recipehub/internal/shoppinglist"
	"recipehub/pkg/models"
)

type GetShoppingListRequest struct{}

type GetShoppingListResponse struct {
	Header  string               `json:"header"`
	Entries []shoppinglist.Entry `json:"entries"`
	Lines   []string             `json:"lines"`
}

type GetRecipeRequest struct {
	ID int64 `json:"id"`
}

type GetRecipeResponse struct {
	Recipe models.Recipe `json:"recipe"`
}
