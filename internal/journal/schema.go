package journal

const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	time DATETIME NOT NULL,
	symbol TEXT NOT NULL,
	run_count INTEGER NOT NULL,
	pnl TEXT NOT NULL,
	average REAL NOT NULL,
	last_price REAL NOT NULL,
	bars INTEGER NOT NULL,
	intent TEXT NOT NULL,
	reason TEXT NOT NULL,
	result TEXT NOT NULL,
	order_id TEXT NOT NULL,
	termination TEXT NOT NULL,
	cancel_trade_job INTEGER NOT NULL,
	error TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_symbol_time ON runs(symbol, time);
`
