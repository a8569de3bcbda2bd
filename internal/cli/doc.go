// Package cli implements attachctl, a command-line front end for the
// attachment service.
//
// Commands run once when given on the command line, or interactively in a
// REPL when no command is given. The REPL keeps the service alive between
// commands, so the in-memory cache, the status table and in-flight state
// carry over.
//
//	send <message-id|-> <file> [mime-type]   upload a file and deliver the message
//	send-image <message-id|-> <image-file>   re-encode an image as JPEG and send it
//	fetch <message-id> <attachment-id> [out] download (or read from cache)
//	thumb <message-id> <attachment-id> <out> <w> <h>
//	local <message-id> [attachment-id]       cached or staged bytes, no network
//	cached <message-id> <attachment-id>      cache-only lookup
//	status <message-id>                      attachment status of a message
//	pending                                  staged binaries not yet uploaded
//	purge                                    drop staged binaries already uploaded
//	clear-cache                              empty memory and disk cache
//
// A message ID of "-" asks for a fresh random ID.
package cli
