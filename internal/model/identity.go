// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package model

import "time"

// Identity holds the verified claims of a bearer token. It is only ever
// produced by a successful token verification.
type Identity struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Claims    map[string]any
}
