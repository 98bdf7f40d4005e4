package revenue

import (
	"context"
	"errors"
	"strings"
)

// ErrForbidden reports a viewer whose role may not see revenue figures.
var ErrForbidden = errors.New("revenue: viewer may not view revenue")

// ViewerContext captures the active user information needed to render charts.
type ViewerContext struct {
	UserID string
	Role   string
	Locale string
	// ThemeVariant is the viewer's UI variant ("light", "dark").
	ThemeVariant string
}

type viewerContextKey struct{}

// WithViewer stores viewer on ctx so engines and renderers can resolve
// per-viewer settings.
func WithViewer(ctx context.Context, viewer ViewerContext) context.Context {
	return context.WithValue(ctx, viewerContextKey{}, viewer)
}

// ViewerFromContext returns the viewer stored by WithViewer.
func ViewerFromContext(ctx context.Context) (ViewerContext, bool) {
	if ctx == nil {
		return ViewerContext{}, false
	}
	viewer, ok := ctx.Value(viewerContextKey{}).(ViewerContext)
	return viewer, ok
}

// Authorizer determines if a viewer can see revenue figures.
type Authorizer interface {
	CanViewRevenue(ctx context.Context, viewer ViewerContext) bool
}

// AuthorizerFunc adapts a function into an Authorizer.
type AuthorizerFunc func(ctx context.Context, viewer ViewerContext) bool

// CanViewRevenue implements Authorizer.
func (fn AuthorizerFunc) CanViewRevenue(ctx context.Context, viewer ViewerContext) bool {
	return fn(ctx, viewer)
}

// RoleAuthorizer hides revenue from the listed roles. Role matching is case
// insensitive.
type RoleAuthorizer struct {
	hidden map[string]struct{}
}

// NewRoleAuthorizer builds an authorizer that denies the given roles.
func NewRoleAuthorizer(hiddenRoles ...string) *RoleAuthorizer {
	hidden := make(map[string]struct{}, len(hiddenRoles))
	for _, role := range hiddenRoles {
		role = strings.ToLower(strings.TrimSpace(role))
		if role != "" {
			hidden[role] = struct{}{}
		}
	}
	return &RoleAuthorizer{hidden: hidden}
}

// CanViewRevenue implements Authorizer.
func (a *RoleAuthorizer) CanViewRevenue(_ context.Context, viewer ViewerContext) bool {
	if a == nil || len(a.hidden) == 0 {
		return true
	}
	_, denied := a.hidden[strings.ToLower(strings.TrimSpace(viewer.Role))]
	return !denied
}

type allowAll struct{}

func (allowAll) CanViewRevenue(context.Context, ViewerContext) bool { return true }
