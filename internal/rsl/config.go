package rsl

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

/*------------------------------------------------------------------
 * Purpose: Network-wide and per-BTS configuration, loaded from a
 * struct-tagged YAML document via gopkg.in/yaml.v3.
 *---------------------------------------------------------------*/

// NetworkConfig is the root configuration document.
type NetworkConfig struct {
	BTSs []BTSConfig `yaml:"bts"`
	// PagingTracePattern, if set, is a strftime layout naming the
	// paging scheduler's per-day audit-trail file, e.g.
	// "paging-%Y%m%d.log".
	PagingTracePattern string `yaml:"paging_trace_pattern,omitempty"`
}

// BTSConfig is one cell's on-disk configuration.
type BTSConfig struct {
	Nr         int         `yaml:"nr"`
	Type       string      `yaml:"type"` // generic, bs11, nokia, siemens, ipaccess
	Timers     BTSTimers   `yaml:"timers"`
	CCCH       CCCHConfig  `yaml:"ccch"`
	MSMaxPower byte        `yaml:"ms_max_power"`
	NECI       bool        `yaml:"neci"`
	DTXEnabled bool        `yaml:"dtx_enabled"`
	Site       *SiteConfig `yaml:"site,omitempty"`
	TRXs       []TRXConfig `yaml:"trxs"`
}

// TRXConfig is one transceiver's on-disk configuration.
type TRXConfig struct {
	Nr        int              `yaml:"nr"`
	ARFCN     uint16           `yaml:"arfcn"`
	Timeslots []TimeslotConfig `yaml:"timeslots"`
}

// TimeslotConfig is one physical timeslot's on-disk configuration.
type TimeslotConfig struct {
	PChan          string `yaml:"pchan"` // ccch, ccch+sdcch4, sdcch8, tchf, tchh, tchf+pdch, pdch
	HoppingEnabled bool   `yaml:"hopping_enabled"`
}

// SiteConfig is an optional surveyed location for a BTS. A surveyor
// may supply either plain decimal degrees or UTM coordinates; UTM wins
// if both are present.
type SiteConfig struct {
	LatDeg float64 `yaml:"lat_deg"`
	LonDeg float64 `yaml:"lon_deg"`

	UTMZone       int     `yaml:"utm_zone,omitempty"`
	UTMHemisphere string  `yaml:"utm_hemisphere,omitempty"` // "N" or "S"
	UTMEasting    float64 `yaml:"utm_easting,omitempty"`
	UTMNorthing   float64 `yaml:"utm_northing,omitempty"`
}

// site builds the runtime Site this config describes.
func (s SiteConfig) site() (Site, error) {
	if s.UTMZone != 0 {
		return NewSiteFromUTM(s.UTMZone, hemisphereFromString(s.UTMHemisphere), s.UTMEasting, s.UTMNorthing)
	}
	return NewSiteFromDegrees(s.LatDeg, s.LonDeg), nil
}

// pchanFromString maps the config file's pchan string onto PChanKind.
func pchanFromString(s string) PChanKind {
	switch s {
	case "ccch":
		return PChanCCCH
	case "ccch+sdcch4":
		return PChanCCCHSDCCH4
	case "sdcch8":
		return PChanSDCCH8SACCH8C
	case "tchf":
		return PChanTCHF
	case "tchh":
		return PChanTCHH
	case "tchf+pdch":
		return PChanTCHFPDCH
	case "pdch":
		return PChanPDCH
	default:
		return PChanNone
	}
}

// lchansForPChan builds the logical channel slots a timeslot's pchan
// configuration implies.
func lchansForPChan(ts *Timeslot, pchan PChanKind) {
	switch pchan {
	case PChanCCCHSDCCH4:
		for i := 0; i < 4; i++ {
			ts.Lchans[i] = &Lchan{TS: ts, Index: i, Kind: LchanSDCCH}
		}
	case PChanSDCCH8SACCH8C:
		for i := 0; i < 8; i++ {
			ts.Lchans[i] = &Lchan{TS: ts, Index: i, Kind: LchanSDCCH}
		}
	case PChanTCHF, PChanTCHFPDCH:
		ts.Lchans[0] = &Lchan{TS: ts, Index: 0, Kind: LchanTCHF}
	case PChanTCHH:
		for i := 0; i < 2; i++ {
			ts.Lchans[i] = &Lchan{TS: ts, Index: i, Kind: LchanTCHH}
		}
	}
}

// LoadNetworkConfig reads and parses a YAML network configuration file.
func LoadNetworkConfig(path string) (*NetworkConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rsl: reading config %s: %w", path, err)
	}
	var cfg NetworkConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("rsl: parsing config %s: %w", path, err)
	}
	return &cfg, nil
}

// btsTypeFromString maps the config file's type string onto BTSType,
// defaulting to BTSTypeGeneric for anything unrecognised.
func btsTypeFromString(s string) BTSType {
	switch s {
	case "bs11":
		return BTSTypeBS11
	case "nokia":
		return BTSTypeNokia
	case "siemens":
		return BTSTypeSiemens
	case "ipaccess":
		return BTSTypeIPAccess
	default:
		return BTSTypeGeneric
	}
}

// NewBTS builds a runtime BTS from its parsed configuration.
func NewBTS(c BTSConfig) *BTS {
	bts := &BTS{
		Nr:         c.Nr,
		Type:       btsTypeFromString(c.Type),
		Timers:     c.Timers,
		CCCH:       c.CCCH,
		MSMaxPower: c.MSMaxPower,
		NECI:       c.NECI,
		DTXEnabled: c.DTXEnabled,
	}
	bts.Vendor = VendorProfileFor(bts.Type)
	if c.Site != nil {
		if site, err := c.Site.site(); err == nil {
			bts.Site = &site
		}
	}

	for i, trxCfg := range c.TRXs {
		trx := &TRX{BTS: bts, Nr: trxCfg.Nr, ARFCN: trxCfg.ARFCN, Link: NopLink{}}
		for j, tsCfg := range trxCfg.Timeslots {
			if j >= len(trx.Timeslots) {
				break
			}
			ts := &Timeslot{
				TRX:            trx,
				Nr:             j,
				PChan:          pchanFromString(tsCfg.PChan),
				HoppingEnabled: tsCfg.HoppingEnabled,
			}
			lchansForPChan(ts, ts.PChan)
			trx.Timeslots[j] = ts
		}
		if i == 0 {
			bts.C0 = trx
		}
	}

	return bts
}
