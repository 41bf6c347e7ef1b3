package protocol

// This package implements parsing and serialising lines for the OpenVPN
// management interface, the text protocol an openvpn process exposes on a
// TCP port or unix socket for out-of-band control and monitoring.
//
//   - `Command` - A single line instruction sent to the peer (e.g. `state`).
//   - `Reply` - The synchronous response to a command.
//   - `Notification` - An unsolicited line pushed by the peer at any time.
//
// === General Syntax
//
// Lines are `\n` delimited, the peer sends `\r\n`. Commands are a name
// followed by space separated, optionally quoted, args.
//
// Nothing in the protocol identifies which command a reply belongs to.
// Replies arrive in the same order the commands were written.
//
// === Single line replies
//
//	```
//	  > pid
//	  < SUCCESS: pid=4242
//	```
//
//	```
//	  > bogus
//	  < ERROR: unknown command, enter 'help' for more options
//	```
//
// === Multi-line replies
//
// Anything that isn't a status line, or a notification, starts a block that
// runs until a line that is exactly `END`.
//
//	```
//	  > state
//	  < 1700000000,CONNECTED,SUCCESS,10.8.0.2,203.0.113.5,1194,,
//	  < END
//	```
//
// === Notifications
//
// Notifications start with `>` followed by a category and a `:`.
//
//	```
//	  >LOG:1700000000,I,Initialization Sequence Completed
//	  >STATE:1700000000,CONNECTED,SUCCESS,10.8.0.2,203.0.113.5,1194,,
//	  >BYTECOUNT:1024,2048
//	```
//
// They can arrive between any two lines, including in the middle of a
// multi-line reply.
//
// `>CLIENT:` notifications are the one multi-line case, a header line is
// followed by `>CLIENT:ENV,name=value` lines up to `>CLIENT:ENV,END`.
//
// === Management password
//
// When the peer is configured with a management password it writes
// `ENTER PASSWORD:` without a newline and waits for the password line
// before accepting commands.
//
// The tokens above are the defaults, see Dialect.
