// go-uwb
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-uwb.
//
// go-uwb is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-uwb is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-uwb; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package fira

import (
	"github.com/ZaparooProject/go-uwb/params"
	"github.com/ZaparooProject/go-uwb/tlv"
)

// Bundle keys specific to FiRa.
const (
	keyDeviceType              = "device_type"
	keyDeviceRole              = "device_role"
	keyRangingRoundUsage       = "ranging_round_usage"
	keyMultiNodeMode           = "multi_node_mode"
	keyMacAddressMode          = "mac_address_mode"
	keyDeviceAddress           = "device_address"
	keyDestAddressList         = "dest_address_list"
	keyInitiationTimeMs        = "initiation_time_ms"
	keyAbsoluteInitiationTime  = "absolute_initiation_time_us"
	keySlotDuration            = "slot_duration_rstu"
	keyRangingInterval         = "ranging_interval_ms"
	keyBlockStrideLength       = "block_stride_length"
	keyHoppingMode             = "hopping_mode"
	keyMaxRRRetry              = "max_ranging_round_retries"
	keySessionPriority         = "session_priority"
	keyInBandTermination       = "in_band_termination_attempt_count"
	keyPreambleCodeIndex       = "preamble_code_index"
	keyRframeConfig            = "rframe_config"
	keyPrfMode                 = "prf_mode"
	keyPreambleDuration        = "preamble_duration"
	keySfdID                   = "sfd_id"
	keyStsSegmentCount         = "sts_segment_count"
	keyStsLength               = "sts_length"
	keyPsduDataRate            = "psdu_data_rate"
	keyBprfPhrDataRate         = "bprf_phr_data_rate"
	keyFcsType                 = "fcs_type"
	keyTxAdaptivePayloadPower  = "tx_adaptive_payload_power"
	keyScheduledMode           = "scheduled_mode"
	keyKeyRotation             = "key_rotation"
	keyKeyRotationRate         = "key_rotation_rate"
	keyAoaResultRequest        = "aoa_result_request"
	keyRssiReporting           = "rssi_reporting"
	keyRangingRoundControl     = "ranging_round_control"
	keyResultReportConfig      = "result_report_config"
	keyRangingTimeStruct       = "ranging_time_struct"
	keySlotsPerRangingRound    = "slots_per_ranging_round"
	keyMaxMeasurements         = "max_number_of_measurements"
	keyStsConfig               = "sts_config"
	keyVendorID                = "vendor_id"
	keyStaticStsIV             = "static_sts_iv"
	keySessionKey              = "session_key"
	keySubSessionID            = "sub_session_id"
	keySubSessionKey           = "sub_session_key"
	keyLinkLayerMode           = "link_layer_mode"
	keyApplicationDataEndpoint = "application_data_endpoint"
	keyUlTdoaTxInterval        = "ul_tdoa_tx_interval_ms"
	keyUlTdoaRandomWindow      = "ul_tdoa_random_window_ms"
	keyUlTdoaDeviceIDType      = "ul_tdoa_device_id_type"
	keyUlTdoaDeviceID          = "ul_tdoa_device_id"
	keyUlTdoaTxTimestampType   = "ul_tdoa_tx_timestamp_type"
	keyDlTdoaRangingRounds     = "dl_tdoa_ranging_rounds"
	keyAction                  = "action"
	keyAddressList             = "address_list"
	keySubSessionIDList        = "sub_session_id_list"
	keySubSessionKeyList       = "sub_session_key_list"
	keySuspendRangingRounds    = "suspend_ranging_rounds"
)

func addressesToInts(addrs []params.Address) []int64 {
	out := make([]int64, 0, len(addrs))
	for _, a := range addrs {
		v, err := tlv.MacAddressToUint64(a)
		if err != nil {
			continue
		}
		out = append(out, int64(v))
	}
	return out
}

func macSize(macMode int) int {
	if macMode != MacAddressModeShort {
		return 8
	}
	return 2
}

func addressFromInt(key string, v int64, macMode int) (params.Address, error) {
	b, err := tlv.Uint64ToMacAddress(uint64(v), macSize(macMode))
	if err != nil {
		return nil, params.Invalidf("%s: %v", key, err)
	}
	return params.Address(b), nil
}

func addressesFromInts(r *params.Reader, key string, macMode int) ([]params.Address, error) {
	vals := r.Int64s(key)
	if vals == nil {
		return nil, nil
	}
	out := make([]params.Address, 0, len(vals))
	for _, v := range vals {
		a, err := addressFromInt(key, v, macMode)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func bytesToInts(b []byte) []int64 {
	out := make([]int64, len(b))
	for i, v := range b {
		out[i] = int64(v)
	}
	return out
}

// ToBundle implements params.Params.
func (p *OpenSessionParams) ToBundle() params.Bundle {
	c := p.cfg
	b := params.NewBundle(params.ProtocolFira, OpenSessionBundleVersion)
	b[params.KeyProtocolVersion] = c.ProtocolVersion.String()
	b[params.KeySessionID] = int64(c.SessionID)
	b[params.KeySessionType] = int(c.SessionType)
	b[params.KeyChannel] = int(c.Channel)
	b[keyDeviceType] = int(c.DeviceType)
	b[keyDeviceRole] = int(c.DeviceRole)
	b[keyRangingRoundUsage] = int(c.RangingRoundUsage)
	b[keyMultiNodeMode] = int(c.MultiNodeMode)
	b[keyMacAddressMode] = int(c.MacAddressMode)
	b[keyDeviceAddress] = addressesToInts([]params.Address{c.DeviceAddress})[0]
	b[keyDestAddressList] = addressesToInts(c.DestAddresses)
	b[keyInitiationTimeMs] = int64(c.InitiationTimeMs)
	b[keyAbsoluteInitiationTime] = int64(c.AbsoluteInitiationTimeUs)
	b[keySlotDuration] = int(c.SlotDurationRstu)
	b[keyRangingInterval] = int64(c.RangingIntervalMs)
	b[keyBlockStrideLength] = int(c.BlockStrideLength)
	b[keyHoppingMode] = int(c.HoppingMode)
	b[keyMaxRRRetry] = int(c.MaxRangingRoundRetries)
	b[keySessionPriority] = int(c.SessionPriority)
	b[keyInBandTermination] = int(c.InBandTerminationAttemptCount)
	b[keyPreambleCodeIndex] = int(c.PreambleCodeIndex)
	b[keyRframeConfig] = int(c.RframeConfig)
	b[keyPrfMode] = int(c.PrfMode)
	b[keyPreambleDuration] = int(c.PreambleDuration)
	b[keySfdID] = int(c.SfdID)
	b[keyStsSegmentCount] = int(c.StsSegmentCount)
	b[keyStsLength] = int(c.StsLength)
	b[keyPsduDataRate] = int(c.PsduDataRate)
	b[keyBprfPhrDataRate] = int(c.BprfPhrDataRate)
	b[keyFcsType] = int(c.FcsType)
	b[keyTxAdaptivePayloadPower] = c.TxAdaptivePayloadPower
	b[keyScheduledMode] = int(c.ScheduledMode)
	b[keyKeyRotation] = c.KeyRotation
	b[keyKeyRotationRate] = int(c.KeyRotationRate)
	b[keyAoaResultRequest] = int(c.AoaResultRequest)
	b[keyRssiReporting] = c.RssiReporting
	b[keyRangingRoundControl] = int(c.RangingRoundControl())
	b[keyResultReportConfig] = int(c.ResultReportConfig())
	b[keyRangingTimeStruct] = int(c.RangingTimeStruct)
	b[keySlotsPerRangingRound] = int(c.SlotsPerRangingRound)
	b[keyMaxMeasurements] = int(c.MaxMeasurements)
	b[keyStsConfig] = int(c.StsConfig)
	b[keyVendorID] = params.CloneBytes(c.VendorID)
	b[keyStaticStsIV] = params.CloneBytes(c.StaticStsIV)
	b[keySessionKey] = params.CloneBytes(c.SessionKey)
	b[keySubSessionID] = int64(c.SubSessionID)
	b[keySubSessionKey] = params.CloneBytes(c.SubSessionKey)
	b[keyLinkLayerMode] = int(c.LinkLayerMode)
	b[keyApplicationDataEndpoint] = int(c.ApplicationDataEndpoint)
	b[keyUlTdoaTxInterval] = int64(c.UlTdoaTxIntervalMs)
	b[keyUlTdoaRandomWindow] = int64(c.UlTdoaRandomWindowMs)
	b[keyUlTdoaDeviceIDType] = int(c.UlTdoaDeviceIDType)
	b[keyUlTdoaDeviceID] = params.CloneBytes(c.UlTdoaDeviceID)
	b[keyUlTdoaTxTimestampType] = int(c.UlTdoaTxTimestampType)
	b[keyDlTdoaRangingRounds] = bytesToInts(c.DlTdoaRangingRounds)
	c.Notification.WriteBundle(b)
	return b
}

// OpenSessionFromBundle parses a bundle written by ToBundle. Absent
// optional keys keep their protocol defaults.
func OpenSessionFromBundle(b params.Bundle) (*OpenSessionParams, error) {
	if err := b.CheckHeader(params.ProtocolFira, OpenSessionBundleVersion); err != nil {
		return nil, err
	}
	r := params.NewReader(b)
	d := defaultOpenSessionConfig()

	builder := NewOpenSessionBuilder().
		SetProtocolVersion(r.Version(params.KeyProtocolVersion, ProtocolVersion11)).
		SetSessionID(uint32(r.Int64(params.KeySessionID))).
		SetDeviceType(DeviceType(r.Int(keyDeviceType))).
		SetDeviceRole(DeviceRole(r.Int(keyDeviceRole))).
		SetMultiNodeMode(MultiNodeMode(r.Int(keyMultiNodeMode)))

	macMode := r.IntOr(keyMacAddressMode, MacAddressModeShort)
	devAddr, err := addressFromInt(keyDeviceAddress, r.Int64(keyDeviceAddress), macMode)
	if err != nil {
		return nil, err
	}
	dests, err := addressesFromInts(r, keyDestAddressList, macMode)
	if err != nil {
		return nil, err
	}
	builder.SetDeviceAddress(devAddr).SetDestAddresses(dests...)

	builder.Apply(func(c *OpenSessionConfig) {
		c.SessionType = SessionType(r.IntOr(params.KeySessionType, int(d.SessionType)))
		c.Channel = uint8(r.IntOr(params.KeyChannel, int(d.Channel)))
		c.RangingRoundUsage = RangingRoundUsage(r.IntOr(keyRangingRoundUsage, int(d.RangingRoundUsage)))
		c.MacAddressMode = uint8(macMode)
		c.InitiationTimeMs = uint32(r.Int64Or(keyInitiationTimeMs, 0))
		c.AbsoluteInitiationTimeUs = uint64(r.Int64Or(keyAbsoluteInitiationTime, 0))
		c.SlotDurationRstu = uint16(r.IntOr(keySlotDuration, int(d.SlotDurationRstu)))
		c.RangingIntervalMs = uint32(r.Int64Or(keyRangingInterval, int64(d.RangingIntervalMs)))
		c.BlockStrideLength = uint8(r.IntOr(keyBlockStrideLength, 0))
		c.HoppingMode = uint8(r.IntOr(keyHoppingMode, 0))
		c.MaxRangingRoundRetries = uint16(r.IntOr(keyMaxRRRetry, 0))
		c.SessionPriority = uint8(r.IntOr(keySessionPriority, int(d.SessionPriority)))
		c.InBandTerminationAttemptCount = uint8(r.IntOr(keyInBandTermination, int(d.InBandTerminationAttemptCount)))
		c.PreambleCodeIndex = uint8(r.IntOr(keyPreambleCodeIndex, int(d.PreambleCodeIndex)))
		c.RframeConfig = uint8(r.IntOr(keyRframeConfig, int(d.RframeConfig)))
		c.PrfMode = uint8(r.IntOr(keyPrfMode, int(d.PrfMode)))
		c.PreambleDuration = uint8(r.IntOr(keyPreambleDuration, int(d.PreambleDuration)))
		c.SfdID = uint8(r.IntOr(keySfdID, int(d.SfdID)))
		c.StsSegmentCount = uint8(r.IntOr(keyStsSegmentCount, int(d.StsSegmentCount)))
		c.StsLength = uint8(r.IntOr(keyStsLength, int(d.StsLength)))
		c.PsduDataRate = uint8(r.IntOr(keyPsduDataRate, 0))
		c.BprfPhrDataRate = uint8(r.IntOr(keyBprfPhrDataRate, 0))
		c.FcsType = uint8(r.IntOr(keyFcsType, 0))
		c.TxAdaptivePayloadPower = r.BoolOr(keyTxAdaptivePayloadPower, false)
		c.ScheduledMode = uint8(r.IntOr(keyScheduledMode, int(d.ScheduledMode)))
		c.KeyRotation = r.BoolOr(keyKeyRotation, false)
		c.KeyRotationRate = uint8(r.IntOr(keyKeyRotationRate, 0))
		c.AoaResultRequest = uint8(r.IntOr(keyAoaResultRequest, int(d.AoaResultRequest)))
		c.RssiReporting = r.BoolOr(keyRssiReporting, false)
		c.SetRangingRoundControl(byte(r.IntOr(keyRangingRoundControl, int(d.RangingRoundControl()))))
		c.SetResultReportConfig(byte(r.IntOr(keyResultReportConfig, int(d.ResultReportConfig()))))
		c.RangingTimeStruct = uint8(r.IntOr(keyRangingTimeStruct, int(d.RangingTimeStruct)))
		c.SlotsPerRangingRound = uint8(r.IntOr(keySlotsPerRangingRound, int(d.SlotsPerRangingRound)))
		c.MaxMeasurements = uint16(r.IntOr(keyMaxMeasurements, 0))
		c.StsConfig = StsConfig(r.IntOr(keyStsConfig, int(d.StsConfig)))
		c.VendorID = emptyToNil(r.Bytes(keyVendorID))
		c.StaticStsIV = emptyToNil(r.Bytes(keyStaticStsIV))
		c.SessionKey = emptyToNil(r.Bytes(keySessionKey))
		c.SubSessionID = uint32(r.Int64Or(keySubSessionID, 0))
		c.SubSessionKey = emptyToNil(r.Bytes(keySubSessionKey))
		c.LinkLayerMode = uint8(r.IntOr(keyLinkLayerMode, 0))
		c.ApplicationDataEndpoint = uint8(r.IntOr(keyApplicationDataEndpoint, 0))
		c.UlTdoaTxIntervalMs = uint32(r.Int64Or(keyUlTdoaTxInterval, int64(d.UlTdoaTxIntervalMs)))
		c.UlTdoaRandomWindowMs = uint32(r.Int64Or(keyUlTdoaRandomWindow, 0))
		c.UlTdoaDeviceIDType = uint8(r.IntOr(keyUlTdoaDeviceIDType, 0))
		c.UlTdoaDeviceID = emptyToNil(r.Bytes(keyUlTdoaDeviceID))
		c.UlTdoaTxTimestampType = uint8(r.IntOr(keyUlTdoaTxTimestampType, 0))
		c.DlTdoaRangingRounds = emptyToNil(r.Bytes(keyDlTdoaRangingRounds))
		c.Notification = params.ReadNotificationBounds(r, params.NtfEnable)
	})
	if err := r.Err(); err != nil {
		return nil, err
	}
	return builder.Build()
}

func emptyToNil(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}
