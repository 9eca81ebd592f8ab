package packp

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"gitpack/object"
	"gitpack/protocol/capability"
	"gitpack/protocol/pktline"
	"gitpack/repository"
)

func TestEncodeDecodeRefAdvertisement(t *testing.T) {
	id1 := object.NewID("1111111111111111111111111111111111111111")
	id2 := object.NewID("2222222222222222222222222222222222222222")
	id3 := object.NewID("3333333333333333333333333333333333333333")

	adv := Advertisement{
		Refs: []repository.RefEntry{
			{Name: "HEAD", ID: id1},
			{Name: "refs/heads/main", ID: id1},
			{Name: "refs/tags/v1", ID: id2, Peeled: true, PeeledID: id3},
		},
		Capabilities: capability.Supported("gitpack/1.0"),
	}

	var buf bytes.Buffer
	require.NoError(t, EncodeRefAdvertisement(&buf, adv))

	s := pktline.NewScanner(&buf)
	first, err := s.Next()
	require.NoError(t, err)
	require.Contains(t, string(first.Payload), id1.String()+" HEAD\x00")
	require.Contains(t, string(first.Payload), "multi_ack_detailed")

	second, err := s.Next()
	require.NoError(t, err)
	require.Equal(t, id1.String()+" refs/heads/main\n", string(second.Payload))

	third, err := s.Next()
	require.NoError(t, err)
	require.Equal(t, id2.String()+" refs/tags/v1\n", string(third.Payload))

	fourth, err := s.Next()
	require.NoError(t, err)
	require.Equal(t, id3.String()+" refs/tags/v1^{}\n", string(fourth.Payload))

	last, err := s.Next()
	require.NoError(t, err)
	require.Equal(t, pktline.KindFlush, last.Kind)
}

func TestEncodeRefAdvertisementEmptyRepo(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeRefAdvertisement(&buf, Advertisement{Capabilities: capability.Supported("")}))

	s := pktline.NewScanner(&buf)
	line, err := s.Next()
	require.NoError(t, err)
	require.Contains(t, string(line.Payload), "capabilities^{}")
}

func TestDecodeUploadRequest(t *testing.T) {
	id := object.NewID("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	var buf bytes.Buffer
	require.NoError(t, pktline.EncodeString(&buf, "want "+id.String()+" thin-pack ofs-delta\n"))
	require.NoError(t, pktline.WriteFlush(&buf))

	req, err := DecodeUploadRequest(pktline.NewScanner(&buf))
	require.NoError(t, err)
	require.Equal(t, []object.ID{id}, req.Wants)
	require.True(t, req.Capabilities.Has("thin-pack"))
	require.True(t, req.Capabilities.Has("ofs-delta"))
}

func TestDecodeHaveLinesStopsAtDone(t *testing.T) {
	id := object.NewID("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	var buf bytes.Buffer
	require.NoError(t, pktline.EncodeString(&buf, "have "+id.String()+"\n"))
	require.NoError(t, pktline.EncodeString(&buf, "done\n"))

	batch, err := DecodeHaveLines(pktline.NewScanner(&buf))
	require.NoError(t, err)
	require.Equal(t, []object.ID{id}, batch.Haves)
	require.True(t, batch.Done)
}

func TestACKEncodeDecodeRoundTrip(t *testing.T) {
	id := object.NewID("cccccccccccccccccccccccccccccccccccccccc")
	var buf bytes.Buffer
	require.NoError(t, EncodeACK(&buf, ACK{ID: id, Status: ACKStatusCommon}))
	require.NoError(t, pktline.WriteFlush(&buf))

	resp, err := DecodeServerResponse(pktline.NewScanner(&buf))
	require.NoError(t, err)
	require.Len(t, resp.ACKs, 1)
	require.Equal(t, id, resp.ACKs[0].ID)
	require.Equal(t, ACKStatusCommon, resp.ACKs[0].Status)
}

func TestNAKDecodes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeNAK(&buf))

	resp, err := DecodeServerResponse(pktline.NewScanner(&buf))
	require.NoError(t, err)
	require.True(t, resp.NAK)
	require.Empty(t, resp.ACKs)
}

func TestShallowUpdateEncode(t *testing.T) {
	id := object.NewID("dddddddddddddddddddddddddddddddddddddddd")
	var buf bytes.Buffer
	require.NoError(t, ShallowUpdate{Shallow: []object.ID{id}}.Encode(&buf))

	s := pktline.NewScanner(&buf)
	line, err := s.Next()
	require.NoError(t, err)
	require.Equal(t, "shallow "+id.String()+"\n", string(line.Payload))

	flush, err := s.Next()
	require.NoError(t, err)
	require.Equal(t, pktline.KindFlush, flush.Kind)
}

func TestSidebandMuxerChunksLargeWrites(t *testing.T) {
	var buf bytes.Buffer
	m := NewMuxer(Sideband, &buf)

	data := bytes.Repeat([]byte("x"), 1500)
	n, err := m.Write(data)
	require.NoError(t, err)
	require.Equal(t, len(data), n)

	s := pktline.NewScanner(&buf)
	first, err := s.Next()
	require.NoError(t, err)
	require.Equal(t, byte(PackData), first.Payload[0])
	require.Len(t, first.Payload, 1+999)

	second, err := s.Next()
	require.NoError(t, err)
	require.Equal(t, byte(PackData), second.Payload[0])
	require.Len(t, second.Payload, 1+501)
}

func TestSidebandWriteChannelDoesNotChunk(t *testing.T) {
	var buf bytes.Buffer
	m := NewMuxer(Sideband, &buf)
	n, err := m.WriteChannel(ProgressMessage, []byte("halfway there"))
	require.NoError(t, err)
	require.Equal(t, len("halfway there"), n)

	s := pktline.NewScanner(&buf)
	line, err := s.Next()
	require.NoError(t, err)
	require.Equal(t, byte(ProgressMessage), line.Payload[0])
	require.Equal(t, "halfway there", string(line.Payload[1:]))
}

func TestSidebandDemuxerSplitsChannels(t *testing.T) {
	var buf bytes.Buffer
	m := NewMuxer(Sideband, &buf)
	_, err := m.WriteChannel(ProgressMessage, []byte("10% done"))
	require.NoError(t, err)
	_, err = m.WriteChannel(PackData, []byte("PACK..."))
	require.NoError(t, err)
	require.NoError(t, pktline.WriteFlush(&buf))

	var progress bytes.Buffer
	d := NewDemuxer(&buf, &progress)
	out := make([]byte, 64)
	n, err := d.Read(out)
	require.NoError(t, err)
	require.Equal(t, "PACK...", string(out[:n]))
	require.Equal(t, "10% done", progress.String())

	_, err = d.Read(out)
	require.ErrorIs(t, err, io.EOF)
}

func TestSidebandDemuxerSurfacesErrorMessage(t *testing.T) {
	var buf bytes.Buffer
	m := NewMuxer(Sideband, &buf)
	_, err := m.WriteChannel(ErrorMessage, []byte("remote went away"))
	require.NoError(t, err)

	d := NewDemuxer(&buf, nil)
	_, err = d.Read(make([]byte, 16))
	require.Error(t, err)
	require.Contains(t, err.Error(), "remote went away")
}

func TestDecodeFetchCommand(t *testing.T) {
	id := object.NewID("eeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee")
	var buf bytes.Buffer
	require.NoError(t, pktline.EncodeString(&buf, "command=fetch\n"))
	require.NoError(t, pktline.EncodeString(&buf, "agent=git/2.40.0\n"))
	require.NoError(t, pktline.WriteDelim(&buf))
	require.NoError(t, pktline.EncodeString(&buf, "want "+id.String()+"\n"))
	require.NoError(t, pktline.EncodeString(&buf, "thin-pack\n"))
	require.NoError(t, pktline.EncodeString(&buf, "done\n"))
	require.NoError(t, pktline.WriteFlush(&buf))

	req, err := DecodeFetchCommand(pktline.NewScanner(&buf))
	require.NoError(t, err)
	require.Equal(t, []object.ID{id}, req.Wants)
	require.True(t, req.ThinPack)
	require.True(t, req.Done)
	agent, ok := req.Capabilities.Get("agent")
	require.True(t, ok)
	require.Equal(t, "git/2.40.0", agent)
}
