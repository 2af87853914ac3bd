package chat

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestDecodeCommand_SendMessage(t *testing.T) {
	req := require.New(t)
	channelID := uuid.New()

	cmd, err := DecodeCommand([]byte(`{
		"type": "message",
		"channelId": "` + channelID.String() + `",
		"text": "hello",
		"attachments": [{"filename": "cat.png", "data": "aGVsbG8="}]
	}`))

	req.NoError(err)
	send, ok := cmd.(SendMessage)
	req.True(ok)
	req.Equal(channelID, send.ChannelID)
	req.Equal("hello", send.Text)
	req.Len(send.Attachments, 1)
	req.Equal("cat.png", send.Attachments[0].Filename)
	req.Equal([]byte("hello"), send.Attachments[0].Data)
}

func TestDecodeCommand_Missing_Required_Field(t *testing.T) {
	req := require.New(t)

	// message without channelId fails validation
	_, err := DecodeCommand([]byte(`{"type":"message","text":"hi"}`))
	req.Error(err)

	// editMessage without text fails validation
	_, err = DecodeCommand([]byte(`{"type":"editMessage","messageId":"` + uuid.NewString() + `"}`))
	req.Error(err)
}

func TestDecodeCommand_Unknown_Type(t *testing.T) {
	req := require.New(t)

	_, err := DecodeCommand([]byte(`{"type":"teleport"}`))

	req.ErrorIs(err, ErrUnknownFrame)
}

func TestDecodeCommand_Malformed_Json(t *testing.T) {
	req := require.New(t)

	_, err := DecodeCommand([]byte(`{"type": "message",`))

	req.Error(err)
	req.NotErrorIs(err, ErrUnknownFrame)
}

func TestDecodeCommand_Ping(t *testing.T) {
	req := require.New(t)

	cmd, err := DecodeCommand([]byte(`{"type":"ping"}`))

	req.NoError(err)
	req.Equal(Ping{}, cmd)
}

func TestDecodeCommand_All_Frame_Types_Round_Trip(t *testing.T) {
	req := require.New(t)
	id := uuid.NewString()

	cases := map[string]string{
		"removeMessage":   `{"type":"removeMessage","messageId":"` + id + `"}`,
		"addReaction":     `{"type":"addReaction","messageId":"` + id + `","reactionId":"thumbsup"}`,
		"removeReaction":  `{"type":"removeReaction","messageId":"` + id + `","reactionId":"thumbsup"}`,
		"updateAvatar":    `{"type":"updateAvatar","avatar":"aGk="}`,
		"status":          `{"type":"status","status":"away"}`,
		"createChannelDm": `{"type":"createChannelDm","targetUserId":"` + id + `"}`,
	}
	for wireType, raw := range cases {
		cmd, err := DecodeCommand([]byte(raw))
		req.NoError(err, wireType)
		req.Equal(wireType, cmd.FrameType())
	}
}
