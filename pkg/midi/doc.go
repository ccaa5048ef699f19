/*
Package midi validates, decodes and encodes the three-byte MIDI messages exchanged
between script contexts and the host.

Messages travel as text: three two-digit hexadecimal groups separated by single
spaces, for example "90 3C 64". Validation is case-insensitive and strict: no
leading or trailing whitespace, no other separators, no shorter or longer forms.

	msg, err := midi.Parse("90 3c 64")
	if err != nil {
		return err
	}
	fmt.Println(msg)            // 90 3C 64
	fmt.Println(msg.Describe()) // NoteOn channel: 0 key: 60 velocity: 100
*/
package midi
