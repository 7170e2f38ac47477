package registry

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	dockerregistry "github.com/docker/docker/api/types/registry"
)

func TestImageTagFormat(t *testing.T) {
	c := &ECRClient{host: "123456789012.dkr.ecr.us-east-2.amazonaws.com"}

	tag := c.ImageTag("my-service", "a1b2c3d")
	want := "123456789012.dkr.ecr.us-east-2.amazonaws.com/my-service:a1b2c3d"
	if tag != want {
		t.Errorf("expected %s, got %s", want, tag)
	}
}

func TestEncodeAuthConfigRoundTrip(t *testing.T) {
	encoded, err := encodeAuthConfig(dockerregistry.AuthConfig{
		Username:      "AWS",
		Password:      "token",
		ServerAddress: "example.ecr.amazonaws.com",
	})
	if err != nil {
		t.Fatal(err)
	}

	raw, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("auth config must be URL-safe base64: %v", err)
	}

	var decoded dockerregistry.AuthConfig
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Username != "AWS" || decoded.Password != "token" {
		t.Errorf("unexpected decoded auth config: %+v", decoded)
	}
}

func TestErrPushFailedUnwraps(t *testing.T) {
	inner := ErrAuthenticationFailed{Registry: "ecr", Err: nil}
	err := ErrPushFailed{ImageTag: "x", Err: inner}

	if err.Unwrap() != inner {
		t.Error("expected Unwrap to expose the underlying error")
	}
}
