package recipes

import (
	"context"
	"fmt"
	"strings"

	"recipehub/pkg/validation"
)

const (
	minAmount = 1
	maxAmount = 32000
)

type writeReq struct {
	Ingredients []IngredientAmount `json:"ingredients"`
	Tags        []int64            `json:"tags"`
	Image       string             `json:"image"`
	Name        string             `json:"name" validate:"required,max=256"`
	Text        string             `json:"text" validate:"required"`
	CookingTime int                `json:"cooking_time" validate:"min=1,max=32000"`
}

// validate checks req against the catalogue and returns field errors, or nil
// and the normalized payload.
func (h *Handler) validate(ctx context.Context, req writeReq, creating bool) (Write, validation.FieldErrors, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Image = strings.TrimSpace(req.Image)

	fe := validation.Struct(req)
	if fe == nil {
		fe = validation.FieldErrors{}
	}
	if creating && req.Image == "" {
		fe.Add("image", "This field is required.")
	}

	if len(req.Tags) == 0 {
		fe.Add("tags", "At least one tag is required.")
	} else if hasDuplicates(req.Tags) {
		fe.Add("tags", "Tags must be unique.")
	} else {
		missing, err := h.Repo.MissingTags(ctx, req.Tags)
		if err != nil {
			return Write{}, nil, err
		}
		for _, id := range missing {
			fe.Add("tags", fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", id))
		}
	}

	ids := make([]int64, 0, len(req.Ingredients))
	for _, in := range req.Ingredients {
		ids = append(ids, in.ID)
		if in.Amount < minAmount || in.Amount > maxAmount {
			fe.Add("ingredients", fmt.Sprintf("Amount must be between %d and %d.", minAmount, maxAmount))
		}
	}
	if len(ids) == 0 {
		fe.Add("ingredients", "At least one ingredient is required.")
	} else if hasDuplicates(ids) {
		fe.Add("ingredients", "Ingredients must be unique.")
	} else {
		missing, err := h.Repo.MissingIngredients(ctx, ids)
		if err != nil {
			return Write{}, nil, err
		}
		for _, id := range missing {
			fe.Add("ingredients", fmt.Sprintf("Ingredient with id %d does not exist.", id))
		}
	}

	if len(fe) > 0 {
		return Write{}, fe, nil
	}
	return Write{
		Name:        req.Name,
		Text:        req.Text,
		Image:       req.Image,
		CookingTime: req.CookingTime,
		TagIDs:      req.Tags,
		Ingredients: req.Ingredients,
	}, nil, nil
}

func hasDuplicates(ids []int64) bool {
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return true
		}
		seen[id] = struct{}{}
	}
	return false
}
