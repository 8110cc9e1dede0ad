// Package auth implements credential handling and session tokens.
//
// It provides:
//   - Hasher: salted, cost-tunable password hashing (argon2id by default,
//     scrypt, or bcrypt) with constant-time verification that never errors
//     on malformed input
//   - TokenService: stateless HS256 access tokens carrying an Identity
//   - Service: signup and login on top of a UserRepository
//   - WithIdentity / IdentityFromContext: request-scoped identity plumbing
//     used by the HTTP auth gate
//
// Tokens are never stored server-side and cannot be revoked before expiry.
package auth
