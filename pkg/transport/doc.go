/*
Package transport carries host notifications and context commands as JSON Lines.

Each inbound line is one notification:

	{"kind": "receiveStateChange", "payload": "{\"sampleRate\":44100}"}

The payload may also be given as a JSON value, in which case it is re-encoded to
text before delivery. Each outbound line is one command:

	{"command": "sendMIDI", "payload": {"message": "90 3C 64", "index": 0}}

An Encoder satisfies dispatch.Bridge, so a context can post straight to stdout.
*/
package transport
