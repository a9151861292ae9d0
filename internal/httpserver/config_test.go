package httpserver

import (
	"reflect"
	"testing"
)

func TestConfigValidateRequiresListenAddr(test *testing.T) {
	test.Parallel()
	cfg := Config{ListenAddr: "  "}
	if err := cfg.Validate(); err == nil {
		test.Fatalf("expected validation error for blank listen addr")
	}
	cfg.ListenAddr = ":8080"
	if err := cfg.Validate(); err != nil {
		test.Fatalf("unexpected validation error: %v", err)
	}
}

func TestParseAllowedOrigins(test *testing.T) {
	test.Parallel()
	cases := []struct {
		name     string
		raw      string
		expected []string
	}{
		{name: "empty", raw: "", expected: []string{}},
		{name: "single", raw: "http://localhost:3000", expected: []string{"http://localhost:3000"}},
		{name: "multiple with spaces", raw: " http://a.test , http://b.test ", expected: []string{"http://a.test", "http://b.test"}},
		{name: "trailing comma", raw: "http://a.test,", expected: []string{"http://a.test"}},
	}
	for _, testCase := range cases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			parsed := ParseAllowedOrigins(testCase.raw)
			if !reflect.DeepEqual(parsed, testCase.expected) {
				test.Fatalf("expected %v, got %v", testCase.expected, parsed)
			}
		})
	}
}
