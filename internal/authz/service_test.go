package authz

import (
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupAuthzServiceTest(t *testing.T) *Service {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	svc, err := NewService(db)
	if err != nil {
		t.Fatalf("new authz service failed: %v", err)
	}
	return svc
}

func TestEnforceOperatorWithRolePolicy(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.GrantRolePolicy("auditor", "/warehouse/inventory/:id", "GET"); err != nil {
		t.Fatalf("grant role policy failed: %v", err)
	}
	if err := svc.SetOperatorRoles(1, []string{"auditor"}); err != nil {
		t.Fatalf("set operator roles failed: %v", err)
	}

	allow, err := svc.EnforceOperator(1, "/api/v1/warehouse/inventory/42", "get")
	if err != nil {
		t.Fatalf("enforce allow failed: %v", err)
	}
	if !allow {
		t.Fatalf("expected allow=true")
	}

	allow, err = svc.EnforceOperator(1, "/api/v1/warehouse/inventory/42", "DELETE")
	if err != nil {
		t.Fatalf("enforce deny failed: %v", err)
	}
	if allow {
		t.Fatalf("expected allow=false")
	}
}

func TestSetOperatorRolesOverride(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap builtin roles failed: %v", err)
	}
	if err := svc.SetOperatorRoles(2, []string{RoleManager}); err != nil {
		t.Fatalf("set first role failed: %v", err)
	}
	if err := svc.SetOperatorRoles(2, []string{RoleViewer}); err != nil {
		t.Fatalf("set second role failed: %v", err)
	}
	roles, err := svc.GetOperatorRoles(2)
	if err != nil {
		t.Fatalf("get roles failed: %v", err)
	}
	if len(roles) != 1 || roles[0] != "role:viewer" {
		t.Fatalf("roles want [role:viewer], got=%v", roles)
	}

	allow, err := svc.EnforceOperator(2, "/warehouse/undo", "POST")
	if err != nil {
		t.Fatalf("enforce old role failed: %v", err)
	}
	if allow {
		t.Fatalf("expected old role permission removed")
	}
}

func TestNormalizeObject(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "/api/v1/warehouse/inventory/:id", want: "/warehouse/inventory/:id"},
		{in: "/warehouse/inventory/:id", want: "/warehouse/inventory/:id"},
		{in: "warehouse/capacity", want: "/warehouse/capacity"},
		{in: "/api/v1", want: "/"},
		{in: "", want: "/"},
	}
	for _, item := range cases {
		got := NormalizeObject(item.in)
		if got != item.want {
			t.Fatalf("normalize object failed, in=%q want=%q got=%q", item.in, item.want, got)
		}
	}
}

func TestBuiltinRoleMatrix(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap builtin roles failed: %v", err)
	}
	roles, err := svc.ListRoles()
	if err != nil {
		t.Fatalf("list roles failed: %v", err)
	}
	if len(roles) != 3 {
		t.Fatalf("expected 3 builtin roles, got %v", roles)
	}

	if err := svc.SetOperatorRoles(10, []string{RoleViewer}); err != nil {
		t.Fatalf("set viewer failed: %v", err)
	}
	if err := svc.SetOperatorRoles(11, []string{RoleClerk}); err != nil {
		t.Fatalf("set clerk failed: %v", err)
	}
	if err := svc.SetOperatorRoles(12, []string{RoleManager}); err != nil {
		t.Fatalf("set manager failed: %v", err)
	}

	cases := []struct {
		operator uint
		obj      string
		act      string
		want     bool
	}{
		{operator: 10, obj: "/api/v1/warehouse/inventory", act: "GET", want: true},
		{operator: 10, obj: "/api/v1/warehouse/stock-in", act: "POST", want: false},
		{operator: 11, obj: "/api/v1/warehouse/stock-out", act: "POST", want: true},
		{operator: 11, obj: "/api/v1/warehouse/capacity", act: "GET", want: true},
		{operator: 11, obj: "/api/v1/warehouse/inventory/3", act: "DELETE", want: false},
		{operator: 11, obj: "/api/v1/warehouse/undo", act: "POST", want: false},
		{operator: 12, obj: "/api/v1/warehouse/inventory/3", act: "DELETE", want: true},
		{operator: 12, obj: "/api/v1/warehouse/operators/3/roles", act: "PUT", want: true},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%d_%s_%s", tc.operator, tc.act, tc.obj), func(t *testing.T) {
			allow, err := svc.EnforceOperator(tc.operator, tc.obj, tc.act)
			if err != nil {
				t.Fatalf("enforce failed: %v", err)
			}
			if allow != tc.want {
				t.Fatalf("want %v got %v", tc.want, allow)
			}
		})
	}

	if !IsBuiltinRole("clerk") || !IsBuiltinRole("role:manager") || IsBuiltinRole("auditor") {
		t.Fatalf("unexpected builtin role detection")
	}
}
