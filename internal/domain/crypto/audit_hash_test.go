package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuditHash_IsDeterministic(t *testing.T) {
	h1 := AuditHash("prev", "alice", "CREATE_HOLD", `{"name":"a"}`, 1)
	h2 := AuditHash("prev", "alice", "CREATE_HOLD", `{"name":"a"}`, 1)
	assert.Equal(t, h1, h2)
}

func TestAuditHash_DiffersOnEachInput(t *testing.T) {
	base := AuditHash("prev", "alice", "CREATE_HOLD", `{"name":"a"}`, 1)

	assert.NotEqual(t, base, AuditHash("other-prev", "alice", "CREATE_HOLD", `{"name":"a"}`, 1))
	assert.NotEqual(t, base, AuditHash("prev", "bob", "CREATE_HOLD", `{"name":"a"}`, 1))
	assert.NotEqual(t, base, AuditHash("prev", "alice", "RELEASE_HOLD", `{"name":"a"}`, 1))
	assert.NotEqual(t, base, AuditHash("prev", "alice", "CREATE_HOLD", `{"name":"b"}`, 1))
	assert.NotEqual(t, base, AuditHash("prev", "alice", "CREATE_HOLD", `{"name":"a"}`, 2))
}
