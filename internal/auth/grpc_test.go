package auth

import (
	"context"
	"errors"
	"testing"

	"karavanCanteen/internal/testutil"
	"karavanCanteen/models"
	"karavanCanteen/repository"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestResolveActor_RoleComesFromDB(t *testing.T) {
	d := testutil.OpenInMemoryDB(t, "authactor")
	users := repository.NewUserRepository(d, "")
	ctx := context.Background()
	u, err := users.Create(ctx, "alice", models.RoleTeacher)
	if err != nil {
		t.Fatalf("create alice: %v", err)
	}
	a, err := ResolveActor(ctx, users, &Principal{Name: "alice"})
	if err != nil {
		t.Fatalf("ResolveActor: %v", err)
	}
	if a.UserID != u.ID || a.Role != models.RoleTeacher {
		t.Fatalf("actor mismatch: %+v", a)
	}

	if err := users.UpdateRoleByUsername(ctx, "alice", models.RoleCanteen); err != nil {
		t.Fatalf("update role: %v", err)
	}
	a, err = ResolveActor(ctx, users, &Principal{Name: "alice"})
	if err != nil || a.Role != models.RoleCanteen {
		t.Fatalf("after promotion: %+v err=%v", a, err)
	}

	if _, err := ResolveActor(ctx, users, &Principal{Name: "mallory"}); !errors.Is(err, ErrUnknownUser) {
		t.Fatalf("expected ErrUnknownUser, got %v", err)
	}
}

func TestRequireStaff(t *testing.T) {
	if _, err := RequireStaff(context.Background()); status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected Unauthenticated, got %v", err)
	}
	teacher := WithActor(context.Background(), models.Actor{UserID: 1, Role: models.RoleTeacher})
	if _, err := RequireStaff(teacher); status.Code(err) != codes.PermissionDenied {
		t.Fatalf("expected PermissionDenied, got %v", err)
	}
	for _, r := range []models.Role{models.RoleCanteen, models.RoleAdmin} {
		ctx := WithActor(context.Background(), models.Actor{UserID: 2, Role: r})
		if _, err := RequireStaff(ctx); err != nil {
			t.Fatalf("RequireStaff %s: %v", r, err)
		}
	}
}

func TestUnaryAuthInterceptor(t *testing.T) {
	secret := "s3cr3t"
	d := testutil.OpenInMemoryDB(t, "authinterceptor")
	bobID := testutil.SeedUser(t, d, "bob", models.RoleCanteen)
	users := repository.NewUserRepository(d, "")
	interceptor := NewUnaryAuthInterceptor(secret, users, "/health")

	// Allowlisted path: no header, handler executes without a principal.
	hCalled := false
	_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/health"}, func(ctx context.Context, req any) (any, error) {
		hCalled = true
		if p, ok := FromContext(ctx); ok && p != nil {
			t.Fatalf("expected no principal on allowlisted path")
		}
		return 123, nil
	})
	if err != nil || !hCalled {
		t.Fatalf("allowlisted handler err=%v called=%v", err, hCalled)
	}

	// Authenticated path: principal and actor injected.
	tok := testutil.GenerateJWTHS256(t, secret, "bob")
	ctx := testutil.CtxWithBearer(context.Background(), tok)
	_, err = interceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/svc/Op"}, func(ctx context.Context, req any) (any, error) {
		p, ok := FromContext(ctx)
		if !ok || p == nil || p.Name != "bob" {
			t.Fatalf("principal not injected: %+v ok=%v", p, ok)
		}
		a, ok := ActorFromContext(ctx)
		if !ok || a.UserID != bobID || a.Role != models.RoleCanteen {
			t.Fatalf("actor not injected: %+v ok=%v", a, ok)
		}
		return nil, nil
	})
	if err != nil {
		t.Fatalf("interceptor auth path: %v", err)
	}

	// Unknown user and missing token are both Unauthenticated.
	ghost := testutil.CtxWithBearer(context.Background(), testutil.GenerateJWTHS256(t, secret, "ghost"))
	for _, c := range []context.Context{ghost, context.Background()} {
		_, err = interceptor(c, nil, &grpc.UnaryServerInfo{FullMethod: "/svc/Op"}, func(ctx context.Context, req any) (any, error) {
			t.Fatalf("handler must not run")
			return nil, nil
		})
		if status.Code(err) != codes.Unauthenticated {
			t.Fatalf("expected Unauthenticated, got %v", err)
		}
	}
}
