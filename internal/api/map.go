package api

import (
	"html/template"
	"net/http"
	"os"
	"path/filepath"
)

const mapFileName = "current_predictions_map.html"

// mapTemplate renders the historically suitable sites on a Leaflet map.
var mapTemplate = template.Must(template.New("map").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Predicted EV Charging Stations</title>
<link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css">
<script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
<style>#map { height: 100vh; }</style>
</head>
<body>
<div id="map"></div>
<script>
var map = L.map('map').setView([{{.CenterLat}}, {{.CenterLon}}], 10);
L.tileLayer('https://tile.openstreetmap.org/{z}/{x}/{y}.png', {
    attribution: '&copy; OpenStreetMap contributors'
}).addTo(map);
{{range .Markers}}
L.marker([{{.Latitude}}, {{.Longitude}}])
    .bindPopup('Predicted EV Station<br>Population: {{printf "%.0f" .Population}}')
    .addTo(map);
{{end}}
</script>
</body>
</html>
`))

type mapData struct {
	CenterLat float64
	CenterLon float64
	Markers   []mapMarker
}

type mapMarker struct {
	Latitude   float64
	Longitude  float64
	Population float64
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "No prediction data available")
		return
	}

	// First 50 suitable sites keeps the map responsive.
	records, err := s.store.Suitable(50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	data := mapData{CenterLat: 28.6139, CenterLon: 77.209}
	for _, rec := range records {
		data.Markers = append(data.Markers, mapMarker{
			Latitude:   rec.Latitude,
			Longitude:  rec.Longitude,
			Population: rec.Population,
		})
	}

	if err := os.MkdirAll(s.cfg.StaticDir, 0o755); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	mapPath := filepath.Join(s.cfg.StaticDir, mapFileName)
	f, err := os.Create(mapPath)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer f.Close()

	if err := mapTemplate.Execute(f, data); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"map_url": "/static/" + mapFileName})
}
