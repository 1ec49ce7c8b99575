package category

// GetCategoryMessagesSQL mirrors the reference message store's
// get_category_messages stored procedure call shape: category, position,
// batch size, correlation, consumer-group member, consumer-group size, and
// an optional server-side condition (requires message_store.sql_condition
// to be enabled on the session).
const GetCategoryMessagesSQL = `SELECT * FROM get_category_messages($1, $2, $3, $4, $5, $6, $7)`
