// Package whisper runs openai-whisper locally through uvx and reads back the
// JSON transcript it writes.
//
// Configuration options (model size, CUDA) are passed via Config. Tests swap
// the subprocess for a command runner that writes the expected output file.
package whisper
