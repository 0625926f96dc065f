package api

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"product-service/internal/catalog"
	"product-service/internal/domain"
	"product-service/internal/logger"
)

// RecommendationServiceName is the fully-qualified gRPC service name.
const RecommendationServiceName = "catalog.v1.RecommendationService"

// RecommendationServer serves recommendation and filter queries to other
// services (the storefront chat assistant in particular). Messages are
// google.protobuf.Struct values so callers need no generated stubs.
type RecommendationServer interface {
	GetRelatedProducts(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetTopRecommendedForUser(context.Context, *structpb.Struct) (*structpb.Struct, error)
	FilterProducts(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func unaryHandler(method string, call func(RecommendationServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	fullMethod := "/" + RecommendationServiceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(RecommendationServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(RecommendationServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// RecommendationServiceDesc describes RecommendationServer for grpc.Server.
var RecommendationServiceDesc = grpc.ServiceDesc{
	ServiceName: RecommendationServiceName,
	HandlerType: (*RecommendationServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetRelatedProducts", Handler: unaryHandler("GetRelatedProducts", RecommendationServer.GetRelatedProducts)},
		{MethodName: "GetTopRecommendedForUser", Handler: unaryHandler("GetTopRecommendedForUser", RecommendationServer.GetTopRecommendedForUser)},
		{MethodName: "FilterProducts", Handler: unaryHandler("FilterProducts", RecommendationServer.FilterProducts)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "catalog/v1/recommendation.proto",
}

// RegisterRecommendationServer registers srv on s.
func RegisterRecommendationServer(s grpc.ServiceRegistrar, srv RecommendationServer) {
	s.RegisterService(&RecommendationServiceDesc, srv)
}

// GRPCHandler implements RecommendationServer on the catalog services.
type GRPCHandler struct {
	recommender *catalog.RecommendationEngine
	products    *catalog.ProductService
}

// NewGRPCHandler creates a new GRPCHandler.
func NewGRPCHandler(svc Services) *GRPCHandler {
	return &GRPCHandler{recommender: svc.Recommender, products: svc.Products}
}

// --- Helper: Error Mapping ---
func mapServiceErrorToGrpcStatus(ctx context.Context, err error, method string) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, catalog.ErrInvalidArgument):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, catalog.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, catalog.ErrUpstreamUnavailable):
		return status.Error(codes.Unavailable, err.Error())
	default:
		logger.FromContext(ctx).Error().Err(err).Str("method", method).Msg("grpc request failed")
		return status.Errorf(codes.Internal, "failed to process %s", method)
	}
}

func (s *GRPCHandler) GetRelatedProducts(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	productID, err := requiredID(req, "product_id")
	if err != nil {
		return nil, err
	}
	limit, err := optionalInt(req, "limit", DefaultRecommendationLimit)
	if err != nil {
		return nil, err
	}
	products, err := s.recommender.Related(ctx, productID, limit)
	if err != nil {
		return nil, mapServiceErrorToGrpcStatus(ctx, err, "GetRelatedProducts")
	}
	return productsResponse(products, nil)
}

func (s *GRPCHandler) GetTopRecommendedForUser(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := requiredID(req, "user_id")
	if err != nil {
		return nil, err
	}
	limit, err := optionalInt(req, "limit", DefaultRecommendationLimit)
	if err != nil {
		return nil, err
	}
	products, err := s.recommender.TopRecommendedForUser(ctx, userID, limit)
	if err != nil {
		return nil, mapServiceErrorToGrpcStatus(ctx, err, "GetTopRecommendedForUser")
	}
	return productsResponse(products, nil)
}

func (s *GRPCHandler) FilterProducts(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	c, err := criteriaFromStruct(req)
	if err != nil {
		return nil, err
	}
	page, err := s.products.FilterPage(ctx, c)
	if err != nil {
		return nil, mapServiceErrorToGrpcStatus(ctx, err, "FilterProducts")
	}
	return productsResponse(page.Records, map[string]any{
		"total":       page.Total,
		"page":        page.Page,
		"page_size":   page.PageSize,
		"total_pages": page.TotalPages(),
	})
}

// --- Helpers: Struct conversion ---

func numberField(req *structpb.Struct, name string) (float64, bool, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return 0, false, nil
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return 0, false, nil
	}
	n, isNum := v.GetKind().(*structpb.Value_NumberValue)
	if !isNum || n.NumberValue != math.Trunc(n.NumberValue) {
		return 0, false, status.Errorf(codes.InvalidArgument, "%s must be an integer", name)
	}
	return n.NumberValue, true, nil
}

func requiredID(req *structpb.Struct, name string) (int64, error) {
	n, ok, err := numberField(req, name)
	if err != nil {
		return 0, err
	}
	if !ok || n <= 0 {
		return 0, status.Errorf(codes.InvalidArgument, "%s must be a positive integer", name)
	}
	return int64(n), nil
}

func optionalInt(req *structpb.Struct, name string, def int) (int, error) {
	n, ok, err := numberField(req, name)
	if err != nil || !ok {
		return def, err
	}
	return int(n), nil
}

// optionalString treats a missing, non-string or empty value as absent.
func optionalString(req *structpb.Struct, name string) *string {
	v, ok := req.GetFields()[name]
	if !ok {
		return nil
	}
	s, isStr := v.GetKind().(*structpb.Value_StringValue)
	if !isStr || s.StringValue == "" {
		return nil
	}
	return &s.StringValue
}

// optionalDecimal accepts a price as either a JSON number or a string.
func optionalDecimal(req *structpb.Struct, name string) (*decimal.Decimal, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return nil, nil
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		d := decimal.NewFromFloat(k.NumberValue)
		return &d, nil
	case *structpb.Value_StringValue:
		d, err := decimal.NewFromString(k.StringValue)
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "invalid %s", name)
		}
		return &d, nil
	case *structpb.Value_NullValue:
		return nil, nil
	default:
		return nil, status.Errorf(codes.InvalidArgument, "invalid %s", name)
	}
}

func criteriaFromStruct(req *structpb.Struct) (catalog.FilterCriteria, error) {
	c := catalog.FilterCriteria{
		Name:     optionalString(req, "name"),
		Category: optionalString(req, "category"),
		Status:   optionalString(req, "status"),
	}
	if s := optionalString(req, "sort_by"); s != nil {
		c.SortField = *s
	}
	if s := optionalString(req, "sort_order"); s != nil {
		c.SortDirection = *s
	}
	var err error
	if c.MinPrice, err = optionalDecimal(req, "min_price"); err != nil {
		return c, err
	}
	if c.MaxPrice, err = optionalDecimal(req, "max_price"); err != nil {
		return c, err
	}
	if v, ok := req.GetFields()["min_rating"]; ok {
		n, isNum := v.GetKind().(*structpb.Value_NumberValue)
		if !isNum {
			return c, status.Error(codes.InvalidArgument, "min_rating must be a number")
		}
		c.MinRating = &n.NumberValue
	}
	for name, dst := range map[string]**int{"page": &c.Page, "page_size": &c.PageSize} {
		n, ok, err := numberField(req, name)
		if err != nil {
			return c, err
		}
		if ok {
			v := int(n)
			*dst = &v
		}
	}
	return c, nil
}

func productToMap(p domain.Product) map[string]any {
	m := map[string]any{
		"id":          p.ID,
		"name":        p.Name,
		"description": p.Description,
		"price":       p.Price.String(),
		"stock":       p.Stock,
		"seller_id":   p.SellerID,
		"title":       p.Title,
		"status":      p.Status,
		"created_at":  p.CreatedAt.UTC().Format(time.RFC3339),
		"updated_at":  p.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if p.Category != nil {
		m["category"] = *p.Category
	}
	if p.Rating != nil {
		m["rating"] = *p.Rating
	}
	if p.CoverImageURL != "" {
		m["cover_image_url"] = p.CoverImageURL
	}
	return m
}

func productsResponse(products []domain.Product, extra map[string]any) (*structpb.Struct, error) {
	list := make([]any, len(products))
	for i, p := range products {
		list[i] = productToMap(p)
	}
	fields := map[string]any{"products": list}
	for k, v := range extra {
		fields[k] = v
	}
	resp, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	return resp, nil
}

// UnaryLoggingInterceptor attaches base to the request context and logs
// each call with its status code and latency.
func UnaryLoggingInterceptor(base zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		ctx = base.With().Str("grpc_method", info.FullMethod).Logger().WithContext(ctx)
		resp, err := handler(ctx, req)
		zerolog.Ctx(ctx).Info().
			Str("code", status.Code(err).String()).
			Dur("latency", time.Since(start)).
			Msg("grpc request")
		return resp, err
	}
}
