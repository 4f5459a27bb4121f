package connection

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalKpasswdRequestFraming(t *testing.T) {
	apReq := []byte("ap-req-bytes")
	privBody := []byte("krb-priv-body")

	request := marshalKpasswdRequest(apReq, privBody)

	require.Len(t, request, 6+len(apReq)+len(privBody))

	totalLen := binary.BigEndian.Uint16(request[0:2])
	assert.Equal(t, uint16(len(request)), totalLen)

	version := binary.BigEndian.Uint16(request[2:4])
	assert.Equal(t, kpasswdProtocolVersion, version)

	apReqLen := binary.BigEndian.Uint16(request[4:6])
	assert.Equal(t, uint16(len(apReq)), apReqLen)

	assert.Equal(t, apReq, request[6:6+len(apReq)])
	assert.Equal(t, privBody, request[6+len(apReq):])
}

func TestLastErrorSetAndClear(t *testing.T) {
	var le lastError
	assert.Equal(t, "", le.LastError())

	le.set("directory error: busy")
	assert.Equal(t, "directory error: busy", le.LastError())

	le.ClearLastError()
	assert.Equal(t, "", le.LastError())
}
