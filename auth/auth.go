// Package auth verifies Firebase ID tokens carried as bearer tokens.
package auth

import (
	"net/http"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"

	"github.com/firegate-io/firegate/policy"
)

// Authenticate verifies the request's bearer token against Firebase and
// returns the decoded ID token.
func Authenticate(req *http.Request) (*auth.Token, error) {
	ctx := req.Context()
	app, err := firebase.NewApp(ctx, nil)
	if err != nil {
		return nil, err
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, err
	}

	jwtToken, err := bearerTokenFromRequest(req)
	if err != nil {
		return nil, err
	}
	return client.VerifyIDToken(ctx, jwtToken)
}

// Identity converts a verified token into the identity the policy
// evaluator works with.
func Identity(token *auth.Token) *policy.Auth {
	if token == nil {
		return nil
	}
	return &policy.Auth{UID: token.UID}
}
