package password

import "testing"

func TestHashAndVerify(t *testing.T) {
	hash, err := Hash("correct-horse")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if hash == "correct-horse" {
		t.Fatal("hash equals plaintext")
	}

	if !Verify("correct-horse", hash) {
		t.Fatal("correct password rejected")
	}
	if Verify("wrong", hash) {
		t.Fatal("wrong password accepted")
	}
}

func TestVerify_DegenerateInputs(t *testing.T) {
	hash, err := Hash("secret")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	if Verify("", hash) {
		t.Fatal("empty password accepted")
	}
	if Verify("secret", "") {
		t.Fatal("empty hash accepted")
	}
	if Verify("secret", "not-a-bcrypt-hash") {
		t.Fatal("malformed hash accepted")
	}
}
