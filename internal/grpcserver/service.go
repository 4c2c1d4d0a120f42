package grpcserver

import (
	"context"

	"google.golang.org/grpc"
)

const (
	ShoppingListService   = "recipehub.ShoppingList"
	RecipesService        = "recipehub.Recipes"
	GetShoppingListMethod = "/" + ShoppingListService + "/GetShoppingList"
	GetRecipeMethod       = "/" + RecipesService + "/GetRecipe"
)

type ShoppingListServer interface {
	GetShoppingList(context.Context, *GetShoppingListRequest) (*GetShoppingListResponse, error)
}

type RecipesServer interface {
	GetRecipe(context.Context, *GetRecipeRequest) (*GetRecipeResponse, error)
}

var shoppingListDesc = grpc.ServiceDesc{
	ServiceName: ShoppingListService,
	HandlerType: (*ShoppingListServer)(nil),
	Methods: []grpc.MethodDesc{{
		MethodName: "GetShoppingList",
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(GetShoppingListRequest)
			if err := dec(in); err != nil {
				return nil, err
			}
			call := func(ctx context.Context, req any) (any, error) {
				return srv.(ShoppingListServer).GetShoppingList(ctx, req.(*GetShoppingListRequest))
			}
			if interceptor == nil {
				return call(ctx, in)
			}
			return interceptor(ctx, in, &grpc.UnaryServerInfo{Server: srv, FullMethod: GetShoppingListMethod}, call)
		},
	}},
}

var recipesDesc = grpc.ServiceDesc{
	ServiceName: RecipesService,
	HandlerType: (*RecipesServer)(nil),
	Methods: []grpc.MethodDesc{{
		MethodName: "GetRecipe",
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(GetRecipeRequest)
			if err := dec(in); err != nil {
				return nil, err
			}
			call := func(ctx context.Context, req any) (any, error) {
				return srv.(RecipesServer).GetRecipe(ctx, req.(*GetRecipeRequest))
			}
			if interceptor == nil {
				return call(ctx, in)
			}
			return interceptor(ctx, in, &grpc.UnaryServerInfo{Server: srv, FullMethod: GetRecipeMethod}, call)
		},
	}},
}

// Register mounts both services on s.
func Register(s *grpc.Server, srv *Server) {
	s.RegisterService(&shoppingListDesc, srv)
	s.RegisterService(&recipesDesc, srv)
}
