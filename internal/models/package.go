package models

import "fmt"

// PackageLimit constrains how many photos an order may carry for a tier.
type PackageLimit struct {
	Min int
	Max int
}

var PackageLimits = map[string]PackageLimit{
	"Starter":      {Min: 5, Max: 10},
	"Professional": {Min: 11, Max: 20},
	"Premium":      {Min: 21, Max: 30},
}

// ValidatePackage checks the tier name and that the photo count falls in
// the tier's allowed range. Called before any order row is created.
func ValidatePackage(pkg string, photoCount int) error {
	limit, ok := PackageLimits[pkg]
	if !ok {
		return fmt.Errorf("invalid package %q", pkg)
	}
	if photoCount < limit.Min || photoCount > limit.Max {
		return fmt.Errorf("%s allows %d-%d photos, got %d", pkg, limit.Min, limit.Max, photoCount)
	}
	return nil
}
