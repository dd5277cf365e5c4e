package apierr

import "net/http"

// Common input validation.

func MissingParam(name string) *Error {
	return New(CodeInputInvalid, http.StatusBadRequest, "missing required parameter: "+name)
}

func InvalidChunkSize() *Error {
	return New(CodeInputInvalid, http.StatusBadRequest, "chunk_size must be a positive integer")
}

func PathEscape(file string) *Error {
	return New(CodeInputInvalid, http.StatusBadRequest, "file must not traverse outside the resource directory: "+file)
}

func InvalidRequestBody(cause error) *Error {
	return Wrap(CodeInputInvalid, http.StatusBadRequest, "invalid request body", cause)
}

func InvalidTaskID() *Error {
	return New(CodeInputInvalid, http.StatusBadRequest, "task_id must not be empty")
}

func InvalidChunkIndexParam() *Error {
	return New(CodeInputInvalid, http.StatusBadRequest, "chunk_index must be a non-negative integer")
}

// File resolution.

func FileNotFound(file string) *Error {
	return New(CodeFileMissing, http.StatusNotFound, "file not found: "+file)
}

// Parser registry.

func UnsupportedExtension(file string, supported []string) *Error {
	return New(CodeUnsupportedExtension, http.StatusBadRequest, "no parser registered for file: "+file).
		WithField("supported_extensions", supported)
}

// I/O and parsing.

func IoFailure(cause error) *Error {
	return Wrap(CodeIoFailure, http.StatusInternalServerError, "failed to read file", cause)
}

func ProbeFailure(cause error) *Error {
	return Wrap(CodeParseFailure, http.StatusInternalServerError, "failed to determine grid shape", cause)
}

// Chunk endpoint.

func TaskUnknown(taskID string) *Error {
	return New(CodeTaskUnknown, http.StatusBadRequest, "unknown task: "+taskID)
}

func ChunkIndexOutOfRange(index int) *Error {
	return New(CodeChunkIndexOutOfRange, http.StatusBadRequest, "chunk index out of range")
}

func ChunkAlreadyTaken() *Error {
	return New(CodeChunkAlreadyTaken, http.StatusBadRequest, "chunk already taken")
}

func TaskFailed(reason string) *Error {
	return New(CodeTaskFailed, http.StatusInternalServerError, "task failed: "+reason)
}
