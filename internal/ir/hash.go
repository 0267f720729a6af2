package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainExpression = "exprstate/expression/v1"
	DomainProject    = "exprstate/project/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ContentHash computes the content-addressed hash of an expression.
// Equal expressions (by canonical encoding) always produce equal hashes.
func ContentHash(data ExpressionData) (ExprHash, error) {
	canonical, err := data.Canonical()
	if err != nil {
		return "", fmt.Errorf("ContentHash: failed to marshal: %w", err)
	}
	return ExprHash(hashWithDomain(DomainExpression, canonical)), nil
}

// ProjectHash computes the hash of a project snapshot. The parent hash is
// part of the identity so that two projects with the same bindings but a
// different history stay distinct.
func ProjectHash(parent ExprHash, bindings, typeBindings map[string]ExprHash) (ExprHash, error) {
	obj := map[string]any{
		"parent":        string(parent),
		"bindings":      nonNilBindings(bindings),
		"type_bindings": nonNilBindings(typeBindings),
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("ProjectHash: failed to marshal: %w", err)
	}
	return ExprHash(hashWithDomain(DomainProject, canonical)), nil
}

// MustContentHash is like ContentHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustContentHash(data ExpressionData) ExprHash {
	h, err := ContentHash(data)
	if err != nil {
		panic(err)
	}
	return h
}

func nonNilBindings(m map[string]ExprHash) map[string]ExprHash {
	if m == nil {
		return map[string]ExprHash{}
	}
	return m
}
