package httpapi

import "net/http"

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", s.handleWS)

	mux.HandleFunc("/api/devices", s.handleDevices)
	mux.HandleFunc("/api/devices/", s.handleDeviceByID)

	mux.HandleFunc("/api/packets", s.handlePackets)
	mux.HandleFunc("/api/packets/clear", s.handlePacketsClear)
	mux.HandleFunc("/api/packets/", s.handlePacketByID)

	mux.HandleFunc("/api/protocols", s.handleProtocols)
	mux.HandleFunc("/api/protocols/", s.handleProtocolDetail)

	mux.HandleFunc("/api/simulation", s.handleSimulation)

	mux.HandleFunc("/api/metrics", s.handleMetrics)

	mux.HandleFunc("/api/alerts", s.handleAlerts)

	mux.HandleFunc("/api/recordings", s.handleRecordings)
	mux.HandleFunc("/api/recordings/", s.handleRecordingDetail)

	mux.HandleFunc("/api/replay", s.handleReplay)

	mux.HandleFunc("/api/loadtest", s.handleLoadtest)

	mux.HandleFunc("/api/bridge/rules", s.handleBridgeRules)
	mux.HandleFunc("/api/bridge/rules/", s.handleBridgeRuleByName)

	mux.HandleFunc("/api/automation/rules", s.handleAutomationRules)
	mux.HandleFunc("/api/automation/rules/", s.handleAutomationRuleByID)
}
