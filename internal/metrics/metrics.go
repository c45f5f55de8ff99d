package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	Consumed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "im_antidelete_stream_consumed_total",
		Help: "Total upsert batches consumed from the stream.",
	})
	EventDecodeFail = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "im_antidelete_event_decode_fail_total",
		Help: "Total stream payloads that could not be decoded.",
	})
	StatusSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "im_antidelete_status_skipped_total",
		Help: "Total status-broadcast events ignored.",
	})
	Stored = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "im_antidelete_stored_total",
		Help: "Total messages appended to the in-memory store.",
	})
	RevokeSeen = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "im_antidelete_revoke_seen_total",
		Help: "Total revoke notifications observed.",
	})
	RevokeUnmatched = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "im_antidelete_revoke_unmatched_total",
		Help: "Total revokes whose original was never stored.",
	})
	AlertSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "im_antidelete_alert_sent_total",
		Help: "Total deletion alerts delivered, by payload kind.",
	}, []string{"kind"})
	AlertFail = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "im_antidelete_alert_fail_total",
		Help: "Total deletion alerts abandoned, by failing stage.",
	}, []string{"stage"})
	GroupLookupFail = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "im_antidelete_group_lookup_fail_total",
		Help: "Total group metadata lookups that failed (alert sent without group name).",
	})
	MediaDownloaded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "im_antidelete_media_downloaded_total",
		Help: "Total media files re-downloaded for alerts.",
	})
	MediaBytes = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "im_antidelete_media_bytes_total",
		Help: "Total bytes of media re-downloaded.",
	})
	BreakerOpen = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "im_antidelete_breaker_open_total",
		Help: "Total times a circuit breaker opened for a conversation.",
	})
	BreakerDrop = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "im_antidelete_breaker_drop_total",
		Help: "Total alerts dropped because the breaker was open.",
	})
	StreamReconnects = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "im_antidelete_stream_reconnects_total",
		Help: "Total websocket stream reconnect attempts.",
	})

	Conversations = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "im_antidelete_store_conversations",
		Help: "Conversations currently retained in memory.",
	})
	Records = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "im_antidelete_store_records",
		Help: "Messages currently retained in memory.",
	})
)

func Register() {
	prometheus.MustRegister(
		Consumed, EventDecodeFail, StatusSkipped,
		Stored, RevokeSeen, RevokeUnmatched,
		AlertSent, AlertFail, GroupLookupFail,
		MediaDownloaded, MediaBytes,
		BreakerOpen, BreakerDrop,
		StreamReconnects,
		Conversations, Records,
	)
}
