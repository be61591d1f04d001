package auth

import (
	"errors"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/officehub/console/internal/ierr"
)

// Claims is the shape of a console session token. AuthorizedRooms lists
// the broadcast rooms the session may join.
type Claims struct {
	jwt.RegisteredClaims
	AuthorizedRooms []string `json:"authorizedRooms,omitempty"`
}

type Session struct {
	Subject         string
	AuthorizedRooms []string
}

func (s *Session) CanJoin(room string) bool {
	if s.Subject == "" {
		return false
	}

	return slices.Contains(s.AuthorizedRooms, room)
}

type Issuer struct {
	secret []byte
}

func NewIssuer(secret string) *Issuer {
	return &Issuer{
		secret: []byte(secret),
	}
}

func (i *Issuer) Sign(subject string, rooms []string, ttl time.Duration) (string, error) {
	now := time.Now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Audience:  jwt.ClaimStrings{"console"},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		AuthorizedRooms: rooms,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(i.secret)
}

type Verifier struct {
	secret    []byte
	jwtParser *jwt.Parser
}

func NewVerifier(secret string) *Verifier {
	jwtParser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(30*time.Second),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithAudience("console"),
	)

	return &Verifier{
		secret:    []byte(secret),
		jwtParser: jwtParser,
	}
}

func (v *Verifier) keyFunc(token *jwt.Token) (any, error) {
	return v.secret, nil
}

func (v *Verifier) Verify(tokenString string) (*Session, error) {
	claims := Claims{}

	_, err := v.jwtParser.ParseWithClaims(tokenString, &claims, v.keyFunc)
	if err != nil {
		return nil, ierr.New(ierr.ErrorCodeValidation, err)
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return nil, ierr.New(ierr.ErrorCodeValidation, errors.New("invalid subject claim"))
	}

	if len(claims.AuthorizedRooms) == 0 {
		return nil, ierr.New(ierr.ErrorCodeValidation, errors.New("authorized rooms cannot be empty"))
	}

	return &Session{
		Subject:         subject,
		AuthorizedRooms: claims.AuthorizedRooms,
	}, nil
}
