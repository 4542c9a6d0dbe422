package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// deviceView is the cross-protocol device summary the devices CRUD
// endpoints expose: every protocol's native identity scheme collapsed
// into one "<protocol>:<id>" handle.
type deviceView struct {
	ID       string `json:"id"`
	Protocol string `json:"protocol"`
	Name     string `json:"name,omitempty"`
}

// handleDevices lists every simulated device across every protocol table
// plus the synthetic topology fleet (GET), or creates a new fleet device
// from a template (POST).
func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listDevices(w, r)
	case http.MethodPost:
		s.createFleetDevices(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	}
}

func (s *Server) listDevices(w http.ResponseWriter, r *http.Request) {
	var out []deviceView

	for _, unit := range s.ctx.ModbusTable.Units() {
		out = append(out, deviceView{ID: fmt.Sprintf("modbus:%d", unit), Protocol: "modbus"})
	}
	for _, dev := range s.ctx.BACnetTable.Devices() {
		out = append(out, deviceView{ID: fmt.Sprintf("bacnet:%d", dev.DeviceID), Protocol: "bacnet", Name: dev.Name})
	}
	for _, dev := range s.ctx.Fleet.Devices() {
		out = append(out, deviceView{ID: fmt.Sprintf("fleet:%s", dev.ID), Protocol: dev.Type, Name: dev.ID})
	}

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createFleetDevices(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DeviceType string `json:"device_type"`
		Count      int    `json:"count"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Count <= 0 {
		req.Count = 1
	}
	created := s.ctx.Fleet.CreateDevices(req.Count, req.DeviceType)
	writeJSON(w, http.StatusCreated, map[string]int{"created": created})
}

// handleDeviceByID resolves /api/devices/<protocol>:<id> for read/delete.
func (s *Server) handleDeviceByID(w http.ResponseWriter, r *http.Request) {
	handle := strings.TrimPrefix(r.URL.Path, "/api/devices/")
	parts := strings.SplitN(handle, ":", 2)
	if len(parts) != 2 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("device id must be \"<protocol>:<id>\""))
		return
	}
	protocol, id := parts[0], parts[1]

	switch protocol {
	case "modbus":
		unitID, err := strconv.ParseUint(id, 10, 8)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		dev, ok := s.ctx.ModbusTable.Get(byte(unitID))
		if !ok {
			writeError(w, http.StatusNotFound, fmt.Errorf("modbus unit %d not found", unitID))
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"id":                unitID,
			"holding_registers": dev.ReadHoldingRegisters(0, 16),
		})
	case "bacnet":
		deviceID, err := strconv.ParseUint(id, 10, 32)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		dev, ok := s.ctx.BACnetTable.Get(uint32(deviceID))
		if !ok {
			writeError(w, http.StatusNotFound, fmt.Errorf("bacnet device %d not found", deviceID))
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"id": dev.DeviceID, "name": dev.Name})
	case "fleet":
		dev, ok := s.ctx.Fleet.Device(id)
		if !ok {
			writeError(w, http.StatusNotFound, fmt.Errorf("fleet device %q not found", id))
			return
		}
		writeJSON(w, http.StatusOK, dev)
	default:
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown device protocol %q", protocol))
	}
}
