package line

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"
)

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestValidateSignature(t *testing.T) {
	body := []byte(`{"events":[]}`)

	tests := []struct {
		name      string
		secret    string
		body      []byte
		signature string
		want      bool
	}{
		{name: "valid", secret: "secret", body: body, signature: sign("secret", body), want: true},
		{name: "tampered body", secret: "secret", body: append([]byte(nil), append(body, 'x')...), signature: sign("secret", body), want: false},
		{name: "wrong secret", secret: "other", body: body, signature: sign("secret", body), want: false},
		{name: "empty signature", secret: "secret", body: body, signature: "", want: false},
		{name: "garbage signature", secret: "secret", body: body, signature: "not-base64!", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateSignature(tt.secret, tt.body, tt.signature); got != tt.want {
				t.Errorf("ValidateSignature() = %v, want %v", got, tt.want)
			}
		})
	}
}
