package helpers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/golang-jwt/jwt/v5"
)

const AvatarFolder = "avatars"

var (
	lowerRe   = regexp.MustCompile(`[a-z]`)
	upperRe   = regexp.MustCompile(`[A-Z]`)
	numberRe  = regexp.MustCompile(`\d`)
	specialRe = regexp.MustCompile(`[@$!%*?&#^._-]`)
)

type CustomClaims struct {
	Role        string `json:"role"`
	Email       string `json:"email"`
	AppMetadata struct {
		Provider  string   `json:"provider"`
		Providers []string `json:"providers"`
	} `json:"app_metadata"`
	UserMetadata map[string]interface{} `json:"user_metadata"`
	jwt.RegisteredClaims
}

func ValidateToken(tokenStr string) (*CustomClaims, error) {
	// Get Supabase URL from environment
	supabaseURL := os.Getenv("SUPABASE_URL")
	if supabaseURL == "" {
		return nil, errors.New("SUPABASE_URL not set")
	}

	jwksURL := fmt.Sprintf("%s/auth/v1/.well-known/jwks.json", strings.TrimSuffix(supabaseURL, "/"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		Ctx: ctx,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load JWKS: %v", err)
	}
	defer jwks.EndBackground()

	token, err := jwt.ParseWithClaims(tokenStr, &CustomClaims{}, jwks.Keyfunc)
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %v", err)
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid or expired token")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}

	return claims, nil
}

func IsPasswordStrong(password string) bool {
	if len(password) < 8 {
		return false
	}
	return lowerRe.MatchString(password) &&
		upperRe.MatchString(password) &&
		numberRe.MatchString(password) &&
		specialRe.MatchString(password)
}

func StringTrim(s string) string {
	return strings.TrimSpace(s)
}

// HasStudentEmailDomain reports whether email ends in the institution's
// suffix, ignoring case. The suffix may be given with or without "@".
func HasStudentEmailDomain(email, domain string) bool {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return false
	}
	if !strings.HasPrefix(domain, "@") {
		domain = "@" + domain
	}
	email = strings.ToLower(strings.TrimSpace(email))
	return len(email) > len(domain) && strings.HasSuffix(email, domain)
}

// UploadAvatar uploads one image for userID, overwriting the previous one.
func UploadAvatar(ctx context.Context, cld *cloudinary.Cloudinary, image, userID string) (string, error) {
	if strings.TrimSpace(image) == "" {
		return "", errors.New("empty image")
	}

	uploadResult, err := cld.Upload.Upload(ctx, image, uploader.UploadParams{
		Folder:    AvatarFolder,
		PublicID:  userID,
		Overwrite: api.Bool(true),
		Tags:      []string{"campusplay"},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload avatar: %v", err)
	}
	if uploadResult.Error.Message != "" {
		return "", fmt.Errorf("failed to upload avatar: %s", uploadResult.Error.Message)
	}

	return uploadResult.SecureURL, nil
}
