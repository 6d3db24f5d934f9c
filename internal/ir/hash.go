package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainProgram = "forge/program/v1"
	DomainRecipe  = "forge/recipe/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ProgramHash computes the content-addressed identity of a program.
// Two programs hash equal iff their canonical JSON is byte-identical, so
// recipe order is significant (it is part of the execution contract).
func ProgramHash(p Program) (string, error) {
	canonical, err := MarshalCanonical(p)
	if err != nil {
		return "", fmt.Errorf("ProgramHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainProgram, canonical), nil
}

// RecipeHash computes the content-addressed identity of a single recipe.
func RecipeHash(r Recipe) (string, error) {
	canonical, err := MarshalCanonical(r)
	if err != nil {
		return "", fmt.Errorf("RecipeHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainRecipe, canonical), nil
}
