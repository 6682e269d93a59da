package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
)

// WellKnownEndpoints holds the well known OIDC endpoints.
type WellKnownEndpoints struct {
	Issuer  string `json:"issuer"`
	JWKSURI string `json:"jwks_uri"`
}

// GetWellKnownEndpointsFromIssuerURL gets the well known endpoints for the
// passed in issuer url. The metadata's own issuer field must match the
// expected issuer, which guards against a misconfigured or hostile
// discovery document handing out someone else's keys.
func GetWellKnownEndpointsFromIssuerURL(
	ctx context.Context,
	client *http.Client,
	issuerURL url.URL,
	expectedIssuer string,
) (*WellKnownEndpoints, error) {
	issuerURL.Path = path.Join(issuerURL.Path, ".well-known/openid-configuration")

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, issuerURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("could not build request to get well known endpoints: %w", err)
	}

	if client == nil {
		client = http.DefaultClient
	}

	response, err := client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("could not get well known endpoints from url %s: %w", issuerURL.String(), err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discovery request returned status %d, expected 200", response.StatusCode)
	}

	// A discovery document is small; cap the body to keep a misbehaving
	// server from exhausting memory.
	limitedBody := io.LimitReader(response.Body, 1*1024*1024)

	var wkEndpoints WellKnownEndpoints
	if err := json.NewDecoder(limitedBody).Decode(&wkEndpoints); err != nil {
		return nil, fmt.Errorf("could not decode json body when getting well known endpoints: %w", err)
	}

	if expectedIssuer != "" && wkEndpoints.Issuer != "" && wkEndpoints.Issuer != expectedIssuer {
		return nil, fmt.Errorf(
			"discovery document issuer %q does not match expected issuer %q",
			wkEndpoints.Issuer,
			expectedIssuer,
		)
	}

	return &wkEndpoints, nil
}
