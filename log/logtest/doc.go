/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package logtest provides a log.FieldLogger that records entries for assertions in tests,
// in the spirit of net/http/httptest.
package logtest
