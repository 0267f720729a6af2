// Package ir provides the data model shared by every exprstate package.
//
// This package contains plain value types and the canonical encoding used for
// content addressing. All other internal packages import ir; ir imports
// nothing internal.
//
// Key design constraints:
//   - ExprHash values are opaque; only ContentHash derives them locally
//   - ExpressionData is immutable once stored and compared canonically
//   - JSON field names follow the backend wire format (pdHash, pdBindings, ...)
package ir
