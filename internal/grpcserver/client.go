package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// Client calls the recipehub services over an existing connection.
type Client struct {
	Conn  grpc.ClientConnInterface
	Token string
}

func (c Client) ctx(ctx context.Context) context.Context {
	if c.Token == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+c.Token)
}

func (c Client) GetShoppingList(ctx context.Context) (*GetShoppingListResponse, error) {
	out := new(GetShoppingListResponse)
	err := c.Conn.Invoke(c.ctx(ctx), GetShoppingListMethod, &GetShoppingListRequest{}, out, grpc.CallContentSubtype(CodecName))
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c Client) GetRecipe(ctx context.Context, id int64) (*GetRecipeResponse, error) {
	out := new(GetRecipeResponse)
	err := c.Conn.Invoke(c.ctx(ctx), GetRecipeMethod, &GetRecipeRequest{ID: id}, out, grpc.CallContentSubtype(CodecName))
	if err != nil {
		return nil, err
	}
	return out, nil
}
