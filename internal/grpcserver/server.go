package grpcserver

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"recipehub/internal/recipes"
	"recipehub/internal/shoppinglist"
	"recipehub/pkg/logger"
	"recipehub/pkg/metrics"
)

type Server struct {
	Lists   *shoppinglist.Service
	Recipes *recipes.Repo
	Metrics *metrics.ServerMetrics
	Log     *logger.Logger
}

func NewServer(lists *shoppinglist.Service, recipeRepo *recipes.Repo, m *metrics.ServerMetrics, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	return &Server{Lists: lists, Recipes: recipeRepo, Metrics: m, Log: log}
}

func (s *Server) GetShoppingList(ctx context.Context, _ *GetShoppingListRequest) (*GetShoppingListResponse, error) {
	claims := ClaimsFrom(ctx)
	if claims == nil {
		return nil, status.Error(codes.Unauthenticated, "unauthenticated")
	}

	list, err := s.Lists.Build(ctx, claims.UserID)
	if err != nil {
		s.Log.Error("grpc shopping list failed", "user_id", claims.UserID, "error", err)
		return nil, status.Error(codes.Internal, "build shopping list failed")
	}
	s.Metrics.ObserveShoppingList("grpc", len(list.Entries))

	return &GetShoppingListResponse{
		Header:  list.Header,
		Entries: list.Entries,
		Lines:   list.Lines,
	}, nil
}

func (s *Server) GetRecipe(ctx context.Context, req *GetRecipeRequest) (*GetRecipeResponse, error) {
	if req == nil || req.ID <= 0 {
		return nil, status.Error(codes.InvalidArgument, "id required")
	}

	var viewer string
	if claims := ClaimsFrom(ctx); claims != nil {
		viewer = claims.UserID
	}

	rec, err := s.Recipes.Get(ctx, viewer, req.ID)
	if err != nil {
		s.Log.Error("grpc get recipe failed", "id", req.ID, "error", err)
		return nil, status.Error(codes.Internal, "get failed")
	}
	if rec == nil {
		return nil, status.Error(codes.NotFound, "not found")
	}
	return &GetRecipeResponse{Recipe: *rec}, nil
}
