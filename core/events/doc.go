// Package events defines the typed events produced by a realtime session.
//
// Event kinds are grouped by receiver-facing namespaces:
//
//   - provider.*
//   - playback.*
//   - session.*
//
// provider events
//
//   - AudioDelta (provider.audio_delta): base64 PCM16 chunk of a streamed
//     audio response. Routed to playback, not to observers.
//   - ProviderError (provider.error): error envelope sent by the provider. The
//     session keeps running.
//   - ProviderEvent (provider.event): any other envelope, forwarded with its
//     raw payload untouched so callers can handle types this package does not
//     model.
//
// playback events
//
//   - PlaybackStarted (playback.started): the sequencer activated a segment
//     while idle.
//   - PlaybackFailed (playback.failed): a segment failed to activate or play;
//     the next segment is activated.
//   - PlaybackEnded (playback.ended): the queue drained.
//
// session events
//
//   - SessionStateChanged (session.state_changed): the engine moved to a new
//     state.
//   - DecodeFailed (session.decode_failed): an inbound message or audio delta
//     could not be decoded; isolated to that message.
//   - SessionClosed (session.closed): terminal, emitted exactly once with the
//     close reason.
package events
