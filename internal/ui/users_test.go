package ui

import (
	"strings"
	"testing"

	"github.com/fadea/fadeclient/internal/fadeapi"
)

func TestBuildUserCreate(t *testing.T) {
	payload, err := buildUserCreate(" ana ", "pw", "Ana", "Diaz", "ana@example.com", " Admin ")
	if err != nil {
		t.Fatalf("buildUserCreate returned error: %v", err)
	}
	if payload.Username != "ana" || payload.Role == nil || *payload.Role != fadeapi.RoleAdmin {
		t.Fatalf("payload = %+v", payload)
	}

	payload, err = buildUserCreate("ana", "pw", "Ana", "Diaz", "ana@example.com", "")
	if err != nil || payload.Role != nil {
		t.Fatalf("payload without role = %+v, %v", payload, err)
	}

	_, err = buildUserCreate("ana", "", "", "Diaz", "ana@example.com", "")
	if err == nil || !strings.Contains(err.Error(), "password, first name") {
		t.Fatalf("missing fields error = %v", err)
	}

	if _, err := buildUserCreate("a", "b", "c", "d", "e", "root"); err == nil {
		t.Fatalf("invalid role accepted")
	}
}

func TestBuildUserUpdate_SendsOnlyChangedFields(t *testing.T) {
	orig := fadeapi.User{ID: 7, FirstName: "Ana", LastName: "Diaz", Email: "ana@example.com", Role: "user", IsActive: true}

	upd, err := buildUserUpdate(orig, "Ana", "Díaz", "ana@example.com", "", "user", "yes")
	if err != nil {
		t.Fatalf("buildUserUpdate returned error: %v", err)
	}
	if upd.LastName == nil || *upd.LastName != "Díaz" {
		t.Fatalf("LastName = %v, want Díaz", upd.LastName)
	}
	if upd.FirstName != nil || upd.Email != nil || upd.Role != nil || upd.IsActive != nil || upd.Password != nil {
		t.Fatalf("update carries unchanged fields: %+v", upd)
	}

	upd, err = buildUserUpdate(orig, "", "", "", "secret", "admin", "no")
	if err != nil {
		t.Fatalf("buildUserUpdate returned error: %v", err)
	}
	if upd.Password == nil || upd.Role == nil || *upd.Role != "admin" || upd.IsActive == nil || *upd.IsActive {
		t.Fatalf("update = %+v", upd)
	}
}

func TestBuildUserUpdate_Errors(t *testing.T) {
	orig := fadeapi.User{FirstName: "Ana", IsActive: true}
	if _, err := buildUserUpdate(orig, "Ana", "", "", "", "", "yes"); err == nil || err.Error() != "nothing changed" {
		t.Fatalf("unchanged error = %v", err)
	}
	if _, err := buildUserUpdate(orig, "", "", "", "", "", "maybe"); err == nil {
		t.Fatalf("invalid active accepted")
	}
	if _, err := buildUserUpdate(orig, "", "", "", "", "owner", ""); err == nil {
		t.Fatalf("invalid role accepted")
	}
}

func TestUserRows(t *testing.T) {
	rows := userRows([]fadeapi.User{{ID: 3, Username: "ana", FirstName: "Ana", Role: "admin", IsActive: true}})
	if len(rows) != 1 || len(rows[0]) != len(userColumns()) {
		t.Fatalf("rows = %v", rows)
	}
	if rows[0][0] != "3" || rows[0][2] != "Ana" || rows[0][3] != "-" || rows[0][5] != "yes" {
		t.Fatalf("rows[0] = %v", rows[0])
	}
}
