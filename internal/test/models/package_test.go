package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"estate-video-backend/internal/models"
)

func TestValidatePackage_UnknownTier(t *testing.T) {
	err := models.ValidatePackage("Gold", 7)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid package")
}

func TestValidatePackage_Bounds(t *testing.T) {
	cases := []struct {
		pkg   string
		count int
		ok    bool
	}{
		{"Starter", 4, false},
		{"Starter", 5, true},
		{"Starter", 10, true},
		{"Starter", 11, false},
		{"Professional", 11, true},
		{"Professional", 20, true},
		{"Professional", 21, false},
		{"Premium", 20, false},
		{"Premium", 21, true},
		{"Premium", 30, true},
		{"Premium", 31, false},
	}

	for _, tc := range cases {
		err := models.ValidatePackage(tc.pkg, tc.count)
		if tc.ok {
			assert.NoError(t, err, "%s with %d photos", tc.pkg, tc.count)
		} else {
			assert.Error(t, err, "%s with %d photos", tc.pkg, tc.count)
		}
	}
}
