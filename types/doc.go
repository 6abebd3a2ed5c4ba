// Package types provides core types used across the courseflow module.
// This package has ZERO dependencies on other courseflow packages to avoid
// circular imports. All other packages should import types from here.
package types
