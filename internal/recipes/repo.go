package recipes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"

	"recipehub/internal/shoppinglist"
	"recipehub/pkg/models"
)

var (
	ErrNotFound      = errors.New("recipe not found")
	ErrForbidden     = errors.New("only the author can change this recipe")
	ErrDuplicateName = errors.New("recipe with this name already exists")
	ErrAlreadyAdded  = errors.New("recipe already added")
	ErrNotAdded      = errors.New("recipe was not added")
)

// relation is a per-user recipe list backed by its own table.
type relation string

const (
	Favorites    relation = "favorites"
	ShoppingCart relation = "shopping_cart"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// Filter narrows recipe listings. Favorited and InCart only apply to a
// signed-in viewer.
type Filter struct {
	AuthorID  string
	TagSlugs  []string
	Favorited bool
	InCart    bool
}

// Write is the validated payload of a create or update.
type Write struct {
	Name        string
	Text        string
	Image       string
	CookingTime int
	TagIDs      []int64
	Ingredients []IngredientAmount
}

type IngredientAmount struct {
	ID     int64 `json:"id"`
	Amount int   `json:"amount"`
}

// --- catalogue ---

func (r *Repo) ListTags(ctx context.Context) ([]models.Tag, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id, name, slug FROM tags ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	out := []models.Tag{}
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *Repo) GetTag(ctx context.Context, id int64) (*models.Tag, error) {
	var t models.Tag
	err := r.DB.QueryRowContext(ctx, `SELECT id, name, slug FROM tags WHERE id = ?`, id).Scan(&t.ID, &t.Name, &t.Slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get tag: %w", err)
	}
	return &t, nil
}

func (r *Repo) UpsertTag(ctx context.Context, name, slug string) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO tags (name, slug) VALUES (?, ?)
		ON CONFLICT(slug) DO UPDATE SET name = excluded.name
	`, name, slug)
	if err != nil {
		return fmt.Errorf("upsert tag: %w", err)
	}
	return nil
}

// ListIngredients returns the catalogue, optionally narrowed to names that
// start with prefix. Matching is done in Go because SQLite's LOWER only folds
// ASCII and ingredient names are often Cyrillic.
func (r *Repo) ListIngredients(ctx context.Context, prefix string) ([]models.Ingredient, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id, name, measurement_unit FROM ingredients ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list ingredients: %w", err)
	}
	defer rows.Close()

	prefix = strings.ToLower(strings.TrimSpace(prefix))
	out := []models.Ingredient{}
	for rows.Next() {
		var in models.Ingredient
		if err := rows.Scan(&in.ID, &in.Name, &in.MeasurementUnit); err != nil {
			return nil, fmt.Errorf("scan ingredient: %w", err)
		}
		if prefix == "" || strings.HasPrefix(strings.ToLower(in.Name), prefix) {
			out = append(out, in)
		}
	}
	return out, rows.Err()
}

func (r *Repo) GetIngredient(ctx context.Context, id int64) (*models.Ingredient, error) {
	var in models.Ingredient
	err := r.DB.QueryRowContext(ctx, `
		SELECT id, name, measurement_unit FROM ingredients WHERE id = ?
	`, id).Scan(&in.ID, &in.Name, &in.MeasurementUnit)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get ingredient: %w", err)
	}
	return &in, nil
}

func (r *Repo) UpsertIngredient(ctx context.Context, name, unit string) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO ingredients (name, measurement_unit) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET measurement_unit = excluded.measurement_unit
	`, name, unit)
	if err != nil {
		return fmt.Errorf("upsert ingredient: %w", err)
	}
	return nil
}

// missingIDs returns the ids from ids that have no row in table.
func (r *Repo) missingIDs(ctx context.Context, table string, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id FROM `+table+` WHERE id IN (`+placeholders(len(ids))+`)`, int64Args(ids)...)
	if err != nil {
		return nil, fmt.Errorf("check %s: %w", table, err)
	}
	defer rows.Close()

	found := make(map[int64]bool, len(ids))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan %s id: %w", table, err)
		}
		found[id] = true
	}
	var missing []int64
	for _, id := range ids {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	return missing, rows.Err()
}

func (r *Repo) MissingTags(ctx context.Context, ids []int64) ([]int64, error) {
	return r.missingIDs(ctx, "tags", ids)
}

func (r *Repo) MissingIngredients(ctx context.Context, ids []int64) ([]int64, error) {
	return r.missingIDs(ctx, "ingredients", ids)
}

// --- recipes ---

const recipeSelect = `
	SELECT r.id, r.name, r.text, COALESCE(r.image, ''), r.cooking_time, r.pub_date,
		u.id, u.email, u.username, u.first_name, u.last_name, u.avatar,
		EXISTS (SELECT 1 FROM follows f WHERE f.author_id = u.id AND f.subscriber_id = ?),
		EXISTS (SELECT 1 FROM favorites fa WHERE fa.recipe_id = r.id AND fa.user_id = ?),
		EXISTS (SELECT 1 FROM shopping_cart sc WHERE sc.recipe_id = r.id AND sc.user_id = ?)
	FROM recipes r
	JOIN users u ON u.id = r.author_id
`

func scanRecipe(row interface{ Scan(...any) error }) (*models.Recipe, error) {
	var (
		rec    models.Recipe
		avatar sql.NullString
	)
	err := row.Scan(&rec.ID, &rec.Name, &rec.Text, &rec.Image, &rec.CookingTime, &rec.PubDate,
		&rec.Author.ID, &rec.Author.Email, &rec.Author.Username, &rec.Author.FirstName, &rec.Author.LastName, &avatar,
		&rec.Author.IsSubscribed, &rec.IsFavorited, &rec.IsInShoppingCart)
	if err != nil {
		return nil, err
	}
	if avatar.Valid {
		rec.Author.Avatar = &avatar.String
	}
	rec.Tags = []models.Tag{}
	rec.Ingredients = []models.RecipeIngredient{}
	return &rec, nil
}

func (r *Repo) Get(ctx context.Context, viewerID string, id int64) (*models.Recipe, error) {
	rec, err := scanRecipe(r.DB.QueryRowContext(ctx, recipeSelect+` WHERE r.id = ?`,
		viewerID, viewerID, viewerID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get recipe: %w", err)
	}
	if err := r.loadRelations(ctx, []*models.Recipe{rec}); err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *Repo) List(ctx context.Context, viewerID string, f Filter, limit, offset int) ([]models.Recipe, int, error) {
	where, args := f.where(viewerID)

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM recipes r`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count recipes: %w", err)
	}

	queryArgs := append([]any{viewerID, viewerID, viewerID}, args...)
	queryArgs = append(queryArgs, limit, offset)
	rows, err := r.DB.QueryContext(ctx, recipeSelect+where+`
		ORDER BY r.pub_date DESC, r.id DESC
		LIMIT ? OFFSET ?
	`, queryArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list recipes: %w", err)
	}
	defer rows.Close()

	var ptrs []*models.Recipe
	for rows.Next() {
		rec, err := scanRecipe(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan recipe: %w", err)
		}
		ptrs = append(ptrs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list recipes: %w", err)
	}
	if err := r.loadRelations(ctx, ptrs); err != nil {
		return nil, 0, err
	}

	out := make([]models.Recipe, 0, len(ptrs))
	for _, p := range ptrs {
		out = append(out, *p)
	}
	return out, total, nil
}

func (f Filter) where(viewerID string) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.AuthorID != "" {
		conds = append(conds, `r.author_id = ?`)
		args = append(args, f.AuthorID)
	}
	if len(f.TagSlugs) > 0 {
		conds = append(conds, `EXISTS (SELECT 1 FROM recipe_tags rt JOIN tags t ON t.id = rt.tag_id
			WHERE rt.recipe_id = r.id AND t.slug IN (`+placeholders(len(f.TagSlugs))+`))`)
		for _, s := range f.TagSlugs {
			args = append(args, s)
		}
	}
	if viewerID != "" && f.Favorited {
		conds = append(conds, `EXISTS (SELECT 1 FROM favorites x WHERE x.recipe_id = r.id AND x.user_id = ?)`)
		args = append(args, viewerID)
	}
	if viewerID != "" && f.InCart {
		conds = append(conds, `EXISTS (SELECT 1 FROM shopping_cart x WHERE x.recipe_id = r.id AND x.user_id = ?)`)
		args = append(args, viewerID)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return ` WHERE ` + strings.Join(conds, ` AND `), args
}

// loadRelations fills tags and ingredients for recs with one query each.
func (r *Repo) loadRelations(ctx context.Context, recs []*models.Recipe) error {
	if len(recs) == 0 {
		return nil
	}
	byID := make(map[int64]*models.Recipe, len(recs))
	ids := make([]int64, 0, len(recs))
	for _, rec := range recs {
		byID[rec.ID] = rec
		ids = append(ids, rec.ID)
	}
	in := placeholders(len(ids))

	rows, err := r.DB.QueryContext(ctx, `
		SELECT rt.recipe_id, t.id, t.name, t.slug
		FROM recipe_tags rt
		JOIN tags t ON t.id = rt.tag_id
		WHERE rt.recipe_id IN (`+in+`)
		ORDER BY t.id
	`, int64Args(ids)...)
	if err != nil {
		return fmt.Errorf("load recipe tags: %w", err)
	}
	for rows.Next() {
		var (
			rid int64
			t   models.Tag
		)
		if err := rows.Scan(&rid, &t.ID, &t.Name, &t.Slug); err != nil {
			rows.Close()
			return fmt.Errorf("scan recipe tag: %w", err)
		}
		byID[rid].Tags = append(byID[rid].Tags, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("load recipe tags: %w", err)
	}

	rows, err = r.DB.QueryContext(ctx, `
		SELECT ri.recipe_id, i.id, i.name, i.measurement_unit, ri.amount
		FROM recipe_ingredients ri
		JOIN ingredients i ON i.id = ri.ingredient_id
		WHERE ri.recipe_id IN (`+in+`)
		ORDER BY ri.id
	`, int64Args(ids)...)
	if err != nil {
		return fmt.Errorf("load recipe ingredients: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			rid int64
			ri  models.RecipeIngredient
		)
		if err := rows.Scan(&rid, &ri.ID, &ri.Name, &ri.MeasurementUnit, &ri.Amount); err != nil {
			return fmt.Errorf("scan recipe ingredient: %w", err)
		}
		byID[rid].Ingredients = append(byID[rid].Ingredients, ri)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("load recipe ingredients: %w", err)
	}
	return nil
}

// AuthorOf returns the author id of a recipe or ErrNotFound.
func (r *Repo) AuthorOf(ctx context.Context, id int64) (string, error) {
	var author string
	err := r.DB.QueryRowContext(ctx, `SELECT author_id FROM recipes WHERE id = ?`, id).Scan(&author)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("recipe author: %w", err)
	}
	return author, nil
}

func (r *Repo) Short(ctx context.Context, id int64) (*models.RecipeShort, error) {
	var s models.RecipeShort
	err := r.DB.QueryRowContext(ctx, `
		SELECT id, name, COALESCE(image, ''), cooking_time FROM recipes WHERE id = ?
	`, id).Scan(&s.ID, &s.Name, &s.Image, &s.CookingTime)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("short recipe: %w", err)
	}
	return &s, nil
}

func (r *Repo) Create(ctx context.Context, authorID string, w Write) (id int64, err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin create recipe: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO recipes (author_id, name, text, image, cooking_time)
		VALUES (?, ?, ?, ?, ?)
	`, authorID, w.Name, w.Text, w.Image, w.CookingTime)
	if err != nil {
		return 0, mapWriteErr("create recipe", err)
	}
	if id, err = res.LastInsertId(); err != nil {
		return 0, fmt.Errorf("create recipe id: %w", err)
	}
	if err = writeRelations(ctx, tx, id, w); err != nil {
		return 0, err
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit create recipe: %w", err)
	}
	return id, nil
}

// Update replaces the recipe's fields, tags and ingredients. An empty image
// keeps the stored one.
func (r *Repo) Update(ctx context.Context, id int64, w Write) (err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update recipe: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `
		UPDATE recipes
		SET name = ?, text = ?, cooking_time = ?, image = COALESCE(NULLIF(?, ''), image)
		WHERE id = ?
	`, w.Name, w.Text, w.CookingTime, w.Image, id)
	if err != nil {
		return mapWriteErr("update recipe", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM recipe_tags WHERE recipe_id = ?`, id); err != nil {
		return fmt.Errorf("clear recipe tags: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM recipe_ingredients WHERE recipe_id = ?`, id); err != nil {
		return fmt.Errorf("clear recipe ingredients: %w", err)
	}
	if err = writeRelations(ctx, tx, id, w); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit update recipe: %w", err)
	}
	return nil
}

func writeRelations(ctx context.Context, tx *sql.Tx, id int64, w Write) error {
	for _, tagID := range w.TagIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO recipe_tags (recipe_id, tag_id) VALUES (?, ?)
		`, id, tagID); err != nil {
			return fmt.Errorf("add recipe tag: %w", err)
		}
	}
	for _, ing := range w.Ingredients {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO recipe_ingredients (recipe_id, ingredient_id, amount) VALUES (?, ?, ?)
		`, id, ing.ID, ing.Amount); err != nil {
			return fmt.Errorf("add recipe ingredient: %w", err)
		}
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM recipes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete recipe: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- favorites & shopping cart ---

func (r *Repo) Add(ctx context.Context, rel relation, userID string, recipeID int64) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO `+string(rel)+` (user_id, recipe_id) VALUES (?, ?)`, userID, recipeID)
	if err != nil {
		var se sqlite3.Error
		if errors.As(err, &se) {
			switch se.ExtendedCode {
			case sqlite3.ErrConstraintUnique:
				return ErrAlreadyAdded
			case sqlite3.ErrConstraintForeignKey:
				return ErrNotFound
			}
		}
		return fmt.Errorf("add to %s: %w", rel, err)
	}
	return nil
}

func (r *Repo) Remove(ctx context.Context, rel relation, userID string, recipeID int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM `+string(rel)+` WHERE user_id = ? AND recipe_id = ?`, userID, recipeID)
	if err != nil {
		return fmt.Errorf("remove from %s: %w", rel, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotAdded
	}
	return nil
}

// CartLines flattens every recipe in the user's cart into ingredient lines,
// ordered by when the recipe was added and then by the recipe's own
// ingredient order.
func (r *Repo) CartLines(ctx context.Context, userID string) ([]shoppinglist.IngredientLine, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT i.name, i.measurement_unit, ri.amount
		FROM shopping_cart sc
		JOIN recipe_ingredients ri ON ri.recipe_id = sc.recipe_id
		JOIN ingredients i ON i.id = ri.ingredient_id
		WHERE sc.user_id = ?
		ORDER BY sc.id, ri.id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("cart lines: %w", err)
	}
	defer rows.Close()

	var out []shoppinglist.IngredientLine
	for rows.Next() {
		var l shoppinglist.IngredientLine
		if err := rows.Scan(&l.Name, &l.Unit, &l.Amount); err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func mapWriteErr(op string, err error) error {
	var se sqlite3.Error
	if errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique {
		return ErrDuplicateName
	}
	return fmt.Errorf("%s: %w", op, err)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func int64Args(ids []int64) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}
