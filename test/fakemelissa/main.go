package main

import (
	"encoding/json"
	"flag"
	"log"
	"net/http"

	"github.com/gorilla/mux"
)

type record struct {
	RecordID            string `json:"RecordID"`
	Result              string `json:"Result"`
	IPAddress           string `json:"IPAddress"`
	City                string `json:"City"`
	Region              string `json:"Region"`
	CountryAbbreviation string `json:"CountryAbbreviation"`
}

type reply struct {
	TransmissionReference string   `json:"TransmissionReference"`
	TransmissionResults   string   `json:"TransmissionResults"`
	Version               string   `json:"Version"`
	TotalRecords          string   `json:"TotalRecords"`
	Records               []record `json:"Records"`
}

var (
	city    string
	region  string
	country string
	license string
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func handleIPLocation(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id := q.Get("id")
	ip := q.Get("ip")
	log.Printf("IP Address: %s id set: %v\n", ip, id != "")

	resp := reply{TransmissionReference: q.Get("t"), Version: "fake"}
	if id == "" || (license != "" && id != license) {
		resp.TransmissionResults = "GE05"
		writeJSON(w, http.StatusUnauthorized, resp)
		return
	}
	if ip == "" {
		resp.TransmissionResults = "SE01"
		writeJSON(w, http.StatusBadRequest, resp)
		return
	}

	resp.TotalRecords = "1"
	resp.Records = []record{{
		RecordID:            "1",
		Result:              "IS01",
		IPAddress:           ip,
		City:                city,
		Region:              region,
		CountryAbbreviation: country,
	}}
	writeJSON(w, http.StatusOK, resp)
}

func main() {
	addr := flag.String("addr", "127.0.0.1:8181", "listen address")
	flag.StringVar(&city, "city", "Rancho Santa Margarita", "city returned for every lookup")
	flag.StringVar(&region, "region", "CA", "region returned for every lookup")
	flag.StringVar(&country, "countryCode", "US", "country code returned for every lookup")
	flag.StringVar(&license, "license", "", "only accept this id (empty accepts any non-empty id)")
	flag.Parse()

	router := mux.NewRouter()
	router.HandleFunc("/v4/web/iplocation/doiplocation", handleIPLocation).Methods(http.MethodGet)

	log.Printf("Fake Melissa API listening on http://%s (use baseURL: http://%s)\n", *addr, *addr)
	log.Fatal(http.ListenAndServe(*addr, router))
}
