package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/arnavshah/care-coverage-api/pkg/database"
)

var jwtAlgorithm = jwt.SigningMethodHS256

// passwordCost is the bcrypt cost for coordinator passwords.
var passwordCost = 14

// tokenTTL is how long a coordinator session lasts.
const tokenTTL = 24 * time.Hour

// Claims represents the JWT claims
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Authenticator signs coordinator tokens and integration keys.
type Authenticator struct {
	jwtSecret    []byte
	masterSecret []byte
}

func New(jwtSecret, masterSecret string) *Authenticator {
	return &Authenticator{jwtSecret: []byte(jwtSecret), masterSecret: []byte(masterSecret)}
}

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), passwordCost)
	return string(bytes), err
}

// CheckPasswordHash compares a password with its hash
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// CreateToken creates a new JWT token for a coordinator
func (a *Authenticator) CreateToken(username string) (string, error) {
	claims := &Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwtAlgorithm, claims)
	return token.SignedString(a.jwtSecret)
}

// VerifyToken verifies a JWT token
func (a *Authenticator) VerifyToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwtAlgorithm {
			return nil, errors.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return a.jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}

// EnsureAdminExists creates the first coordinator when the table is empty.
// It reports whether a coordinator was created.
func EnsureAdminExists(db *gorm.DB, username, password string) (bool, error) {
	var count int64
	if err := db.Model(&database.Coordinator{}).Count(&count).Error; err != nil {
		return false, errors.Wrap(err, "count coordinators")
	}
	if count > 0 {
		return false, nil
	}

	if username == "" {
		username = "admin"
	}
	hash, err := HashPassword(password)
	if err != nil {
		return false, errors.Wrap(err, "hash password")
	}

	user := database.Coordinator{
		Username:     username,
		PasswordHash: hash,
	}
	if err := db.Create(&user).Error; err != nil {
		return false, errors.Wrap(err, "create coordinator")
	}
	return true, nil
}

// GenerateHMACKey creates a signed integration key using HMAC-SHA256
func (a *Authenticator) GenerateHMACKey(name string) string {
	return name + "." + a.sign(name)
}

// VerifyHMACKey validates an HMAC-signed integration key and returns its name
func (a *Authenticator) VerifyHMACKey(key string) (string, error) {
	i := strings.LastIndex(key, ".")
	if i <= 0 || i == len(key)-1 {
		return "", errors.New("invalid key format")
	}
	name, provided := key[:i], key[i+1:]

	if !hmac.Equal([]byte(provided), []byte(a.sign(name))) {
		return "", errors.New("invalid signature")
	}
	return name, nil
}

func (a *Authenticator) sign(name string) string {
	h := hmac.New(sha256.New, a.masterSecret)
	h.Write([]byte(name))
	return hex.EncodeToString(h.Sum(nil))
}

// KeyPreview shortens a key for listings, e.g. "sko...9f3a".
func KeyPreview(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:3] + "..." + key[len(key)-4:]
}
