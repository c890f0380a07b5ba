// Package state provides a lightweight FSM/session store for Telegram bots.
// It is domain-agnostic: the conversation payload is a type parameter, and
// sessions that stay idle longer than the configured TTL are evicted.
package state
