// Package env loads .env files for hitboard.
//
// Values such as POSTMAN_API_KEY are usually kept in a .env file next to
// the configuration. The loader exports them into the process environment
// without overriding variables that are already set, so config.ApplyEnv
// picks them up.
package env
