package document

import (
	"errors"
	"testing"
)

func TestCheckPublicAddress(t *testing.T) {
	tests := []struct {
		address string
		allowed bool
	}{
		{"93.184.216.34:443", true},
		{"[2606:4700:4700::1111]:443", true},
		{"127.0.0.1:8000", false},
		{"[::1]:80", false},
		{"10.1.2.3:80", false},
		{"172.16.0.1:80", false},
		{"192.168.1.10:80", false},
		{"169.254.169.254:80", false},
		{"[fe80::1]:80", false},
		{"[fd00::1]:80", false},
		{"0.0.0.0:80", false},
		{"[::ffff:127.0.0.1]:80", false},
		{"224.0.0.1:80", false},
	}

	for _, test := range tests {
		t.Run(test.address, func(t *testing.T) {
			err := checkPublicAddress("tcp", test.address, nil)

			if test.allowed && err != nil {
				t.Fatalf("expected %s to be allowed, got %v", test.address, err)
			}
			if !test.allowed && !errors.Is(err, ErrForbiddenAddress) {
				t.Fatalf("expected ErrForbiddenAddress for %s, got %v", test.address, err)
			}
		})
	}
}

func TestFindURLsKeepsOnlyHTTP(t *testing.T) {
	got := findURLs("see https://a.example/x, ftp://b.example and http://c.example/y?q=1")

	if len(got) != 2 || got[0] != "https://a.example/x" || got[1] != "http://c.example/y?q=1" {
		t.Fatalf("unexpected URLs: %q", got)
	}
}
