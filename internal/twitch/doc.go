// Package twitch implements a minimal Helix API client covering the
// operations the monitor needs: app access token acquisition via the client
// credentials flow and live stream lookups by login. Tokens are cached and
// refreshed shortly before expiry.
package twitch
