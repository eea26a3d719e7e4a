package mysql

const insertLeadSQL = `
INSERT INTO leads
  (full_name, email, phone, type, source, interest, message, remote_ip, user_agent, status)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, 'pending')
`

const markDeliveredSQL = `
UPDATE leads
SET status       = 'delivered',
    attempts     = attempts + 1,
    last_error   = NULL,
    delivered_at = CURRENT_TIMESTAMP
WHERE id = ?
`

// A permanent failure moves the lead to 'failed'; otherwise it stays
// 'pending' for the next relay run.
const markFailedSQL = `
UPDATE leads
SET status     = IF(?, 'failed', 'pending'),
    attempts   = attempts + 1,
    last_error = ?
WHERE id = ?
`

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

const leadColumns = `
  id, full_name, email, phone, type, source, interest, message,
  remote_ip, user_agent, status, attempts, last_error, created_at, delivered_at`

const getLeadSQL = `SELECT` + leadColumns + `
FROM leads
WHERE id = ?
`

// Oldest first; aligns with idx_leads_status_created.
const listPendingSQL = `SELECT` + leadColumns + `
FROM leads
WHERE status = 'pending' AND attempts < ?
ORDER BY created_at ASC, id ASC
LIMIT ?
`
