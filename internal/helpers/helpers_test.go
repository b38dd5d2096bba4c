package helpers

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestIsPasswordStrong(t *testing.T) {
	cases := map[string]bool{
		"short1!":        false,
		"alllowercase1!": false,
		"ALLUPPERCASE1!": false,
		"NoNumbers!!":    false,
		"NoSpecial123":   false,
		"Str0ng!Pass":    true,
		"An0ther#one":    true,
	}
	for password, want := range cases {
		if got := IsPasswordStrong(password); got != want {
			t.Errorf("IsPasswordStrong(%q) = %v, want %v", password, got, want)
		}
	}
}

func TestHasStudentEmailDomain(t *testing.T) {
	cases := []struct {
		email, domain string
		want          bool
	}{
		{"ada@students.example.edu", "@students.example.edu", true},
		{"ADA@Students.Example.edu", "@students.example.edu", true},
		{"ada@students.example.edu", "students.example.edu", true},
		{"ada@gmail.com", "@students.example.edu", false},
		{"ada@fakestudents.example.edu", "@students.example.edu", false},
		{"@students.example.edu", "@students.example.edu", false},
		{"ada@students.example.edu", "", false},
	}
	for _, tc := range cases {
		if got := HasStudentEmailDomain(tc.email, tc.domain); got != tc.want {
			t.Errorf("HasStudentEmailDomain(%q, %q) = %v, want %v", tc.email, tc.domain, got, tc.want)
		}
	}
}

func TestClaimsFrom(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	if _, ok := ClaimsFrom(c); ok {
		t.Error("claims found on a bare context")
	}

	c.Set(ClaimsKey, &EnhancedClaims{UserID: ""})
	if _, ok := ClaimsFrom(c); ok {
		t.Error("claims without a user id accepted")
	}

	c.Set(ClaimsKey, &EnhancedClaims{UserID: "u1"})
	claims, ok := ClaimsFrom(c)
	if !ok || !claims.IsOwner("u1") {
		t.Errorf("ClaimsFrom = %+v, %v", claims, ok)
	}
}
