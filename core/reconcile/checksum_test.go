package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChecksum(t *testing.T) {
	t.Run("KnownVectors", func(t *testing.T) {
		assert.Equal(t, "0CED271E20A3CC7EEA9336484650CE1F41B261AE918AC0E595791BC0A202079B",
			Checksum(map[string]string{"Title": "Home"}))
		assert.Equal(t, "6E13FABFC5CC02CD53C3BA0D53F038FF92D12B8F5B6B59A0AD41F60DD30DE38B",
			Checksum(map[string]string{"Url": "/", "Title": "Home", "Id": "S1"}))
		assert.Equal(t, "E3B0C44298FC1C149AFBF4C8996FB92427AE41E4649B934CA495991B7852B855",
			Checksum(map[string]string{}))
	})

	t.Run("OrderIndependent", func(t *testing.T) {
		a := map[string]string{}
		b := map[string]string{}
		keys := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
		for i, k := range keys {
			a[k] = k + "v"
			b[keys[len(keys)-1-i]] = keys[len(keys)-1-i] + "v"
		}
		for i := 0; i < 20; i++ {
			assert.Equal(t, Checksum(a), Checksum(b))
		}
	})

	base := map[string]string{"Title": "Home", "Url": "/sites/home", "Owner": "alice"}
	tests := []struct {
		name   string
		mutate func(m map[string]string)
	}{
		{"ValueChanged", func(m map[string]string) { m["Title"] = "Home2" }},
		{"PairAdded", func(m map[string]string) { m["Quota"] = "0" }},
		{"PairRemoved", func(m map[string]string) { delete(m, "Owner") }},
		{"EmptyValueAdded", func(m map[string]string) { m["Description"] = "" }},
		{"KeyRenamed", func(m map[string]string) { m["owner"] = m["Owner"]; delete(m, "Owner") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := map[string]string{}
			for k, v := range base {
				m[k] = v
			}
			tt.mutate(m)
			assert.NotEqual(t, Checksum(base), Checksum(m))
		})
	}
}
