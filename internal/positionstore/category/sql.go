package category

// WriteMessageSQL mirrors the reference message store's write_message
// stored procedure call shape: id, stream name, type, data, metadata,
// expected version. The position store passes AnyVersion (-2) since
// checkpoint writes never participate in optimistic concurrency control.
const WriteMessageSQL = `SELECT write_message($1::varchar, $2::varchar, $3::varchar, $4::jsonb, $5::jsonb, $6::bigint)`

// GetLastStreamMessageSQL reads the data of the most recent message on a
// stream, used to resume from the last recorded position on initialize.
const GetLastStreamMessageSQL = `SELECT data FROM get_last_stream_message($1)`

// AnyVersion disables the optimistic-concurrency check on a write_message
// call, matching the reference client's convention for an unconditional
// append.
const AnyVersion int64 = -2
