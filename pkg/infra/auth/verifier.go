package auth

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aegis-sentinel/aegis/pkg/common"
	"github.com/aegis-sentinel/aegis/pkg/config"
	domainErrors "github.com/aegis-sentinel/aegis/pkg/domain/errors"
)

// Verifier validates a bearer credential and resolves the caller identity.
//
//go:generate mockery --name=Verifier --dir=. --output=mocks/ --filename=verifier_mock.go --case=underscore --with-expecter
type Verifier interface {
	Verify(ctx context.Context, token string) (common.Caller, error)
}

// jwtVerifier validates HS256 tokens issued by the identity provider. The
// provider signs subject tokens with the shared project secret.
type jwtVerifier struct {
	secret []byte
	issuer string
}

func NewJWTVerifier(cfg *config.AuthConfig) Verifier {
	return &jwtVerifier{
		secret: []byte(cfg.JWTSecret),
		issuer: cfg.Issuer,
	}
}

func (v *jwtVerifier) Verify(_ context.Context, tokenString string) (common.Caller, error) {
	if tokenString == "" {
		return common.Caller{}, domainErrors.ErrMissingCredential
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return common.Caller{}, fmt.Errorf("%w: %v", domainErrors.ErrInvalidCredential, err)
	}

	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		return common.Caller{}, fmt.Errorf("%w: token has no subject", domainErrors.ErrInvalidCredential)
	}

	return common.AuthenticatedCaller(subject), nil
}
